package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"agro-report/internal/config"
	"agro-report/internal/storage"
)

var ErrUnknownCallback = errors.New("unknown callback")

var callbackBody = regexp.MustCompile(`(?s)^\s*([A-Za-z_$][\w$]*)\s*\((.*)\)\s*;?\s*$`)

// CallbackTransport sends appendData as a GET with the request in the "data"
// query parameter. The endpoint answers with a script body calling the named
// callback, which is routed to a one-shot handler registered for that request.
type CallbackTransport struct {
	http    *resty.Client
	url     string
	sheetID string
	now     func() time.Time

	mu      sync.Mutex
	pending map[string]chan Response
}

func NewCallbackTransport(cfg config.Remote) *CallbackTransport {
	return &CallbackTransport{
		http:    resty.New().SetTimeout(cfg.Timeout),
		url:     cfg.ScriptURL,
		sheetID: cfg.SheetID,
		now:     time.Now,
		pending: make(map[string]chan Response),
	}
}

func (t *CallbackTransport) AppendData(ctx context.Context, rows []Row) ([]storage.ID, error) {
	const op = "remote.CallbackTransport.AppendData"

	name, done := t.register()
	defer t.unregister(name)

	payload, err := json.Marshal(Request{
		Action:    ActionAppendData,
		SheetID:   t.sheetID,
		Timestamp: t.now().UTC().Format(time.RFC3339Nano),
		Data:      rows,
		Callback:  name,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", op, err)
	}

	res, err := t.http.R().
		SetContext(ctx).
		SetQueryParam("data", string(payload)).
		Get(t.url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("%s: HTTP %d: %w", op, res.StatusCode(), ErrBadResponse)
	}

	if err := t.Dispatch(res.Body()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var resp Response
	select {
	case resp = <-done:
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	}

	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "JSONP error"
		}
		return nil, fmt.Errorf("%s: %s: %w", op, msg, ErrUnsuccessful)
	}

	ids, err := resp.ids()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ids, nil
}

// Dispatch parses a `name({...});` body and hands the response to the handler
// registered under name. Each handler fires at most once.
func (t *CallbackTransport) Dispatch(body []byte) error {
	m := callbackBody.FindSubmatch(bytes.TrimSpace(body))
	if m == nil {
		return fmt.Errorf("not a callback body: %w", ErrBadResponse)
	}
	name := string(m[1])

	t.mu.Lock()
	ch, ok := t.pending[name]
	delete(t.pending, name)
	t.mu.Unlock()

	if !ok {
		return fmt.Errorf("%s: %w", name, ErrUnknownCallback)
	}

	var resp Response
	if err := json.Unmarshal(m[2], &resp); err != nil {
		return fmt.Errorf("callback payload: %v: %w", err, ErrBadResponse)
	}
	ch <- resp

	return nil
}

// Pending returns the number of callbacks still waiting for a response.
func (t *CallbackTransport) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

func (t *CallbackTransport) register() (string, <-chan Response) {
	name := "agroCallback_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	ch := make(chan Response, 1)

	t.mu.Lock()
	t.pending[name] = ch
	t.mu.Unlock()

	return name, ch
}

func (t *CallbackTransport) unregister(name string) {
	t.mu.Lock()
	delete(t.pending, name)
	t.mu.Unlock()
}
