//go:build !windows

package capture

import "errors"

func newGDIBackend() (Backend, error) {
	return nil, errors.New("gdi capture is only available on windows")
}
