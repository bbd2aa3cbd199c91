//go:build js && wasm

package main

import (
	"fmt"
	"syscall/js"

	"github.com/robert-malhotra/go-netcdf/vfile"
)

// blobSource reads a Blob or File with FileReaderSync. It only works inside a
// worker, where synchronous reads are allowed.
type blobSource struct {
	blob js.Value
	size int64
}

func newBlobSource(blob js.Value) *blobSource {
	return &blobSource{blob: blob, size: int64(blob.Get("size").Int())}
}

func (s *blobSource) ReadSlice(start, end int64) (data []byte, err error) {
	defer recoverJS(&err)
	reader := js.Global().Get("FileReaderSync").New()
	buf := reader.Call("readAsArrayBuffer", s.blob.Call("slice", start, end))
	return copyArrayBuffer(buf, end-start)
}

func (s *blobSource) TotalSize() int64 {
	return s.size
}

// xhrSource reads byte ranges with synchronous XMLHttpRequest. The worker
// thread blocks for the duration of each request.
type xhrSource struct {
	url  string
	size int64
}

func (s *xhrSource) ReadSlice(start, end int64) (data []byte, err error) {
	defer recoverJS(&err)
	logRange(s.url, start, end)

	req := js.Global().Get("XMLHttpRequest").New()
	req.Call("open", "GET", s.url, false)
	req.Set("responseType", "arraybuffer")
	req.Call("setRequestHeader", "Range", fmt.Sprintf("bytes=%d-%d", start, end-1))
	req.Call("send")

	status := req.Get("status").Int()
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("unexpected status %d", status)
	}
	body, err := copyArrayBuffer(req.Get("response"), -1)
	if err != nil {
		return nil, err
	}
	// A server ignoring Range sends the whole resource.
	if status == 200 && int64(len(body)) > end-start {
		if int64(len(body)) < end {
			return nil, fmt.Errorf("short body: %d bytes", len(body))
		}
		body = body[start:end]
	}
	if int64(len(body)) != end-start {
		return nil, fmt.Errorf("short body: got %d bytes, want %d", len(body), end-start)
	}
	return body, nil
}

func (s *xhrSource) TotalSize() int64 {
	return s.size
}

var _ vfile.Source = (*blobSource)(nil)
var _ vfile.Source = (*xhrSource)(nil)

func copyArrayBuffer(buf js.Value, want int64) ([]byte, error) {
	view := js.Global().Get("Uint8Array").New(buf)
	n := view.Get("length").Int()
	if want >= 0 && int64(n) != want {
		return nil, fmt.Errorf("short read: got %d bytes, want %d", n, want)
	}
	out := make([]byte, n)
	js.CopyBytesToGo(out, view)
	return out, nil
}

// recoverJS turns a JavaScript exception raised through syscall/js into an
// error.
func recoverJS(err *error) {
	if r := recover(); r != nil {
		if jsErr, ok := r.(js.Error); ok {
			*err = jsErr
			return
		}
		*err = fmt.Errorf("%v", r)
	}
}

func logRange(url string, start, end int64) {
	if debug {
		js.Global().Get("console").Call("debug", fmt.Sprintf("requesting bytes %d-%d of %s", start, end, url))
	}
}
