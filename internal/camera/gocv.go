package camera

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// OpenDevice opens a local video capture device through OpenCV. It is the
// production Opener; tests substitute a fake.
func OpenDevice(index int) (Device, error) {
	vc, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("open video device %d: %w", index, err)
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return nil, fmt.Errorf("video device %d did not open", index)
	}
	return &gocvDevice{vc: vc}, nil
}

type gocvDevice struct {
	vc *gocv.VideoCapture
}

func (d *gocvDevice) ReadFrame() ([]byte, error) {
	mat := gocv.NewMat()
	defer mat.Close()

	if ok := d.vc.Read(&mat); !ok || mat.Empty() {
		return nil, errors.New("no frame available from device")
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("encode frame as jpeg: %w", err)
	}
	defer buf.Close()

	frame := make([]byte, buf.Len())
	copy(frame, buf.GetBytes())
	return frame, nil
}

func (d *gocvDevice) Close() error {
	return d.vc.Close()
}
