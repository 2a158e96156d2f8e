package cv

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math/rand"
	"sync"

	"gocv.io/x/gocv"

	"github.com/soocke/cverlay-go/domain/scan"
)

// NetOptions configures an SSD-style DNN detector.
type NetOptions struct {
	Classes     []string
	Colors      []string // cycled over Classes; generated when empty
	Threshold   float64
	ScaleFactor float64
	BlobSize    image.Point
	BlobMean    float64
}

// DefaultNetOptions matches MobileNet-SSD Caffe models.
func DefaultNetOptions() NetOptions {
	return NetOptions{
		Threshold:   0.2,
		ScaleFactor: 0.007,
		BlobSize:    image.Pt(300, 300),
		BlobMean:    130,
	}
}

// Net runs a DNN whose output rows are (batch, class, confidence, left,
// top, right, bottom) with coordinates relative to the frame. Inference is
// serialised per Net.
type Net struct {
	mu     sync.Mutex
	net    gocv.Net
	opts   NetOptions
	colors []string
}

var _ scan.Detector = (*Net)(nil)

// NewNet loads model (and optional config) with gocv.ReadNet.
func NewNet(model, config string, opts NetOptions) (*Net, error) {
	if len(opts.Classes) == 0 {
		return nil, errors.New("net: no classes")
	}
	def := DefaultNetOptions()
	if opts.ScaleFactor <= 0 {
		opts.ScaleFactor = def.ScaleFactor
	}
	if opts.BlobSize.X <= 0 || opts.BlobSize.Y <= 0 {
		opts.BlobSize = def.BlobSize
	}
	if opts.BlobMean == 0 {
		opts.BlobMean = def.BlobMean
	}
	n := gocv.ReadNet(model, config)
	if n.Empty() {
		return nil, fmt.Errorf("net: failed to load model %s", model)
	}
	n.SetPreferableBackend(gocv.NetBackendDefault)
	n.SetPreferableTarget(gocv.NetTargetCPU)
	return &Net{net: n, opts: opts, colors: classColors(len(opts.Classes), opts.Colors)}, nil
}

// classColors cycles the given colours over n classes, or generates dark
// random ones.
func classColors(n int, given []string) []string {
	out := make([]string, n)
	for i := range out {
		if len(given) > 0 {
			out[i] = given[i%len(given)]
			continue
		}
		out[i] = fmt.Sprintf("#%02x%02x%02x", rand.Intn(181), rand.Intn(181), rand.Intn(181))
	}
	return out
}

func (d *Net) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

func (d *Net) Detect(ctx context.Context, img image.Image) ([]scan.Detection, error) {
	bgr, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("net: convert frame: %w", err)
	}
	defer bgr.Close()
	imgW, imgH := float64(bgr.Cols()), float64(bgr.Rows())

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(bgr, &resized, d.opts.BlobSize, 0, 0, gocv.InterpolationLinear)

	mean := d.opts.BlobMean
	blob := gocv.BlobFromImage(resized, d.opts.ScaleFactor, d.opts.BlobSize, gocv.NewScalar(mean, mean, mean, 0), false, false)
	defer blob.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	d.mu.Unlock()
	defer out.Close()

	rows := gocv.GetBlobChannel(out, 0, 0)
	defer rows.Close()

	var dets []scan.Detection
	for r := 0; r < rows.Rows(); r++ {
		conf := float64(rows.GetFloatAt(r, 2))
		if conf < d.opts.Threshold {
			continue
		}
		class := int(rows.GetFloatAt(r, 1))
		if class < 0 || class >= len(d.opts.Classes) {
			continue
		}
		left := int(float64(rows.GetFloatAt(r, 3)) * imgW)
		top := int(float64(rows.GetFloatAt(r, 4)) * imgH)
		right := int(float64(rows.GetFloatAt(r, 5)) * imgW)
		bottom := int(float64(rows.GetFloatAt(r, 6)) * imgH)
		rect := image.Rect(left, top, right, bottom).Intersect(image.Rect(0, 0, int(imgW), int(imgH)))
		if rect.Empty() {
			continue
		}
		dets = append(dets, scan.Detection{
			Label:      d.opts.Classes[class],
			Confidence: min(conf, 1),
			Box:        scan.RegionFromRect(rect),
			Color:      d.colors[class],
		})
	}
	return dets, nil
}
