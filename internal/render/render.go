// Package render formats a scan session snapshot for the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/example/derma-scan/internal/scan"
)

// Disclaimer accompanies every rendered result.
const Disclaimer = "Disclaimer: this analysis is informational only and is not a medical diagnosis. Consult a qualified dermatologist for any skin concern."

// Snapshot renders the current session state as user-facing text.
func Snapshot(snap scan.Snapshot) string {
	var b strings.Builder

	switch snap.State {
	case scan.StateLoading:
		b.WriteString("Analyzing image...\n")
	case scan.StateFailed:
		b.WriteString("! " + snap.UserErr + "\n")
	case scan.StateSucceeded:
		writeResult(&b, snap)
	default:
		if snap.Image != nil {
			fmt.Fprintf(&b, "Image ready (%s, %d bytes). Run predict to analyze it.\n", snap.Image.MIME(), len(snap.Image.Bytes()))
		} else {
			b.WriteString("No image acquired. Provide a file or capture from the camera.\n")
		}
	}

	return b.String()
}

func writeResult(b *strings.Builder, snap scan.Snapshot) {
	result := snap.Result
	if result == nil {
		return
	}

	fmt.Fprintf(b, "Prediction: %s\n", result.Prediction)
	fmt.Fprintf(b, "Confidence: %.2f%%\n", result.Confidence)
	if result.Description != "" {
		fmt.Fprintf(b, "\n%s\n", result.Description)
	}
	if len(result.Precautions) > 0 {
		b.WriteString("\nPrecautions:\n")
		for i, precaution := range result.Precautions {
			fmt.Fprintf(b, "  %d. %s\n", i+1, precaution)
		}
	}
	if snap.Image != nil {
		fmt.Fprintf(b, "\nAnalyzed image: %s, %d bytes\n", snap.Image.MIME(), len(snap.Image.Bytes()))
	}
	b.WriteString("\n" + Disclaimer + "\n")
}
