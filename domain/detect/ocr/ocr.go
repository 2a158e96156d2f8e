// Package ocr detects words with Tesseract through gosseract. Importing it
// registers the "ocr" detector kind with package detect.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/soocke/cverlay-go/domain/detect"
	"github.com/soocke/cverlay-go/domain/scan"
)

// Options configures Words.
type Options struct {
	Languages     []string
	TessdataDir   string
	Whitelist     string
	MinConfidence float64 // 0..1
	Color         string
}

// Words reports every recognised word as a detection labelled with the
// word itself. A Tesseract client is not safe for concurrent use, so
// recognition is serialised per detector.
type Words struct {
	mu     sync.Mutex
	client *gosseract.Client
	opts   Options
}

var _ scan.Detector = (*Words)(nil)

func New(opts Options) (*Words, error) {
	client := gosseract.NewClient()
	if opts.TessdataDir != "" {
		if err := client.SetTessdataPrefix(opts.TessdataDir); err != nil {
			client.Close()
			return nil, fmt.Errorf("ocr: tessdata: %w", err)
		}
	}
	if len(opts.Languages) > 0 {
		if err := client.SetLanguage(opts.Languages...); err != nil {
			client.Close()
			return nil, fmt.Errorf("ocr: set language: %w", err)
		}
	}
	if opts.Whitelist != "" {
		if err := client.SetWhitelist(opts.Whitelist); err != nil {
			client.Close()
			return nil, fmt.Errorf("ocr: set whitelist: %w", err)
		}
	}
	return &Words{client: client, opts: opts}, nil
}

func (w *Words) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.client.Close()
}

func (w *Words) Detect(ctx context.Context, img image.Image) ([]scan.Detection, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("ocr: encode frame: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("ocr: set image: %w", err)
	}
	boxes, err := w.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("ocr: recognise: %w", err)
	}

	origin := img.Bounds().Min
	dets := make([]scan.Detection, 0, len(boxes))
	for _, b := range boxes {
		word := strings.TrimSpace(b.Word)
		conf := b.Confidence / 100
		if word == "" || conf < w.opts.MinConfidence {
			continue
		}
		dets = append(dets, scan.Detection{
			Label:      word,
			Confidence: min(max(conf, 0), 1),
			Box:        scan.RegionFromRect(b.Box.Sub(origin)),
			Color:      w.opts.Color,
		})
	}
	return dets, nil
}

func init() {
	detect.Register("ocr", func(s detect.Spec) (scan.Detector, error) {
		opts := Options{TessdataDir: s.Path, MinConfidence: s.Threshold, Color: s.Color}
		if s.Language != "" {
			opts.Languages = strings.Split(s.Language, "+")
		}
		if len(s.Classes) > 0 {
			opts.Whitelist = strings.Join(s.Classes, "")
		}
		return New(opts)
	})
}
