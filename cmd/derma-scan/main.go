package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/example/derma-scan/internal/camera"
	"github.com/example/derma-scan/internal/capture"
	"github.com/example/derma-scan/internal/config"
	"github.com/example/derma-scan/internal/logging"
	"github.com/example/derma-scan/internal/predictor"
	"github.com/example/derma-scan/internal/render"
	"github.com/example/derma-scan/internal/scan"
)

func main() {
	filePath := flag.String("file", "", "path to an image file to analyze")
	useCamera := flag.Bool("camera", false, "capture the image from the attached camera")
	flag.Parse()

	if (*filePath != "") == *useCamera {
		fmt.Fprintln(os.Stderr, "usage: derma-scan -file <path> | -camera")
		os.Exit(2)
	}

	logger, err := logging.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	cfg, err := config.LoadClient()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	client := predictor.NewHTTPClient(cfg.PredictURL, cfg.PredictTimeout, logger)
	session := scan.NewSession(client, cfg.PredictURL, cfg.PredictTimeout, logger)

	if *filePath != "" {
		img, err := capture.FromFile(*filePath)
		if err != nil {
			logger.Error("file acquisition failed", zap.Error(err), zap.String("path", *filePath))
			fmt.Fprintf(os.Stderr, "Could not load %s: please choose an image file.\n", *filePath)
			os.Exit(1)
		}
		session.SetImage(img)
	} else {
		if err := acquireFromCamera(session, cfg.CameraDevice, logger); err != nil {
			os.Exit(1)
		}
	}

	fmt.Print(render.Snapshot(session.Snapshot()))

	// Ctrl+C cancels the in-flight request instead of abandoning it.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("Analyzing image...")
	if _, err := session.Predict(ctx); err != nil {
		fmt.Print(render.Snapshot(session.Snapshot()))
		os.Exit(1)
	}

	fmt.Print(render.Snapshot(session.Snapshot()))
}

func acquireFromCamera(session *scan.Session, device int, logger *zap.Logger) error {
	alert := func(msg string) {
		fmt.Fprintln(os.Stderr, msg)
	}

	camSession, err := camera.Open(device, camera.OpenDevice, session.SetImage, alert, logger)
	if err != nil {
		return err
	}
	defer camSession.Cancel()

	return camSession.Capture()
}
