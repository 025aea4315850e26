package devkit

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// HTTPScript is one canned reply of FakeHTTPDoer.
type HTTPScript struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Err        error
}

// RecordedRequest is a captured outbound request.
type RecordedRequest struct {
	Method  string
	Path    string
	Query   string
	Headers http.Header
	Body    []byte
}

// FakeHTTPDoer replays scripted responses in order and repeats the last one
// once the script is exhausted. It satisfies the HTTP client contract of the
// transport and auth packages.
type FakeHTTPDoer struct {
	mu       sync.Mutex
	scripts  []HTTPScript
	requests []RecordedRequest
}

func NewFakeHTTPDoer(scripts ...HTTPScript) *FakeHTTPDoer {
	return &FakeHTTPDoer{scripts: append([]HTTPScript(nil), scripts...)}
}

func (d *FakeHTTPDoer) Do(req *http.Request) (*http.Response, error) {
	if d == nil {
		return nil, fmt.Errorf("devkit: fake http doer is nil")
	}
	if req == nil {
		return nil, fmt.Errorf("devkit: request is nil")
	}
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	recorded := RecordedRequest{
		Method:  req.Method,
		Path:    req.URL.Path,
		Query:   req.URL.RawQuery,
		Headers: req.Header.Clone(),
	}
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		recorded.Body = body
	}

	d.mu.Lock()
	d.requests = append(d.requests, recorded)
	index := len(d.requests) - 1
	script := HTTPScript{StatusCode: http.StatusOK, Body: "{}"}
	if index < len(d.scripts) {
		script = d.scripts[index]
	} else if len(d.scripts) > 0 {
		script = d.scripts[len(d.scripts)-1]
	}
	d.mu.Unlock()

	if script.Err != nil {
		return nil, script.Err
	}
	status := script.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	for key, value := range script.Headers {
		headers.Set(key, value)
	}
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     headers,
		Body:       io.NopCloser(bytes.NewBufferString(script.Body)),
		Request:    req,
	}, nil
}

func (d *FakeHTTPDoer) Requests() []RecordedRequest {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]RecordedRequest, 0, len(d.requests))
	for _, item := range d.requests {
		item.Headers = item.Headers.Clone()
		item.Body = append([]byte(nil), item.Body...)
		out = append(out, item)
	}
	return out
}

// LastRequest returns the most recent request matching the method and path
// suffix.
func (d *FakeHTTPDoer) LastRequest(method string, pathSuffix string) (RecordedRequest, bool) {
	requests := d.Requests()
	for i := len(requests) - 1; i >= 0; i-- {
		if strings.EqualFold(requests[i].Method, method) && strings.HasSuffix(requests[i].Path, pathSuffix) {
			return requests[i], true
		}
	}
	return RecordedRequest{}, false
}
