package capture

import (
	"fmt"
	"os"
)

// FromFile reads a local file into an Image. The image/* constraint the
// browser picker used to enforce is checked here by content sniffing,
// so a mislabelled file is rejected regardless of its extension.
func FromFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	img, err := FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return img, nil
}
