//go:build !windows

package inspect

import "errors"

func newAttachmentInspector() (inspector *offInspector, err error) {
	err = errors.New("attachment inspector is only available on windows")
	return
}
