//go:build windows

package inspect

import (
	"context"
	"syscall"
	"unsafe"

	"github.com/fetchguard/finalizer/pkg/classify"
	"github.com/go-ole/go-ole"
)

// Attachment Execution Services. Save() applies zone policy and hands
// the file to the installed antivirus; AES deletes the file itself
// when it blocks it.
var (
	clsidAttachmentServices = ole.NewGUID("{4125DD96-E03A-4103-8F70-E0597D803B9C}")
	iidIAttachmentExecute   = ole.NewGUID("{73DB1241-1E85-4581-8E4F-A81E1D0F8C57}")
)

type iAttachmentExecute struct {
	ole.IUnknown
}

type iAttachmentExecuteVtbl struct {
	ole.IUnknownVtbl
	SetClientTitle   uintptr
	SetClientGuid    uintptr
	SetLocalPath     uintptr
	SetFileName      uintptr
	SetSource        uintptr
	SetReferrer      uintptr
	CheckPolicy      uintptr
	Prompt           uintptr
	Save             uintptr
	Execute          uintptr
	SaveWithUI       uintptr
	ClearClientState uintptr
}

func (ae *iAttachmentExecute) vtbl() *iAttachmentExecuteVtbl {
	return (*iAttachmentExecuteVtbl)(unsafe.Pointer(ae.RawVTable))
}

func (ae *iAttachmentExecute) call(method uintptr, args ...uintptr) uint32 {
	callArgs := append([]uintptr{uintptr(unsafe.Pointer(ae))}, args...)
	hr, _, _ := syscall.SyscallN(method, callArgs...)
	return uint32(hr)
}

type attachmentInspector struct{}

func newAttachmentInspector() (*attachmentInspector, error) {
	return &attachmentInspector{}, nil
}

// Scan runs IAttachmentExecute::Save on the file and returns the raw
// HRESULT. The provenance URL feeds the zone decision.
func (*attachmentInspector) Scan(ctx context.Context, path string, provenanceURL string) uint32 {
	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		oleErr, ok := err.(*ole.OleError)
		// S_FALSE: COM already initialized on this thread.
		if !ok || oleErr.Code() != 1 {
			return classify.StatusUnexpected
		}
	}
	defer ole.CoUninitialize()

	unknown, err := ole.CreateInstance(clsidAttachmentServices, iidIAttachmentExecute)
	if err != nil {
		return classify.StatusUnexpected
	}
	ae := (*iAttachmentExecute)(unsafe.Pointer(unknown))
	defer ae.Release()

	localPath, err := syscall.UTF16PtrFromString(path)
	if err != nil {
		return classify.StatusUnexpected
	}
	if hr := ae.call(ae.vtbl().SetLocalPath, uintptr(unsafe.Pointer(localPath))); !classify.Succeeded(hr) {
		return hr
	}
	if provenanceURL != "" {
		source, convErr := syscall.UTF16PtrFromString(provenanceURL)
		if convErr != nil {
			return classify.StatusUnexpected
		}
		if hr := ae.call(ae.vtbl().SetSource, uintptr(unsafe.Pointer(source))); !classify.Succeeded(hr) {
			return hr
		}
	}

	hr := ae.call(ae.vtbl().Save)
	ae.call(ae.vtbl().ClearClientState)
	return hr
}
