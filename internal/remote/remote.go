package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"agro-report/internal/config"
	"agro-report/internal/storage"
)

var (
	// ErrUnsuccessful is returned when the endpoint answers success=false.
	ErrUnsuccessful = errors.New("remote reported failure")
	// ErrBadResponse covers non-2xx statuses, non-JSON bodies and missing lists.
	ErrBadResponse = errors.New("invalid remote response")
)

const (
	ActionAppendData    = "appendData"
	ActionGetActivities = "getYActivity"
	ActionGetActual     = "getActualByNIK"
)

// Request is the JSON object carried in the "data" form field.
type Request struct {
	Action    string `json:"action"`
	SheetID   string `json:"sheetId"`
	Timestamp string `json:"timestamp,omitempty"`
	Data      []Row  `json:"data,omitempty"`
	NIK       string `json:"nik,omitempty"`
	Callback  string `json:"callback,omitempty"`
}

type Response struct {
	Success   bool            `json:"success"`
	SyncedIDs json.RawMessage `json:"syncedIds"`
	Items     json.RawMessage `json:"items"`
	Message   string          `json:"message"`
}

// Row is one report as the sheet expects it. Harvest-only columns are nil for
// maintenance reports and dropped from the JSON.
type Row struct {
	ID           storage.ID         `json:"id"`
	Type         storage.Kind       `json:"type"`
	Timestamp    string             `json:"timestamp"`
	Estate       string             `json:"estate"`
	Division     int                `json:"divisi"`
	Block        string             `json:"blok"`
	Date         string             `json:"tanggal"`
	ActivityType string             `json:"actTyp"`
	Job          string             `json:"pekerjaan"`
	PlannedArea  float64            `json:"rencanaHa"`
	ActualArea   float64            `json:"aktualHa"`
	PlannedTon   *float64           `json:"rencanaTon,omitempty"`
	ActualTon    *float64           `json:"aktualTon,omitempty"`
	Labor        int                `json:"tenagaKerja"`
	ShippedTon   *float64           `json:"kirimTon,omitempty"`
	CarryOver    *float64           `json:"restan,omitempty"`
	Rotation     *string            `json:"pusingan,omitempty"`
	Feeder       *string            `json:"feeder,omitempty"`
	Truck        *string            `json:"truk,omitempty"`
	Remarks      string             `json:"keterangan"`
	MenteeName   string             `json:"menteeName"`
	MentorName   string             `json:"mentorName"`
	Workers      []storage.Worker   `json:"workers"`
	Materials    []storage.Material `json:"materials"`
}

// Client talks to the spreadsheet script endpoint.
type Client struct {
	http    *resty.Client
	url     string
	sheetID string
	log     *slog.Logger
	now     func() time.Time
}

func New(cfg config.Remote, log *slog.Logger) *Client {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Accept", "application/json")

	return &Client{
		http:    client,
		url:     cfg.ScriptURL,
		sheetID: cfg.SheetID,
		log:     log,
		now:     time.Now,
	}
}

// AppendData pushes rows and returns the ids the sheet acknowledged.
func (c *Client) AppendData(ctx context.Context, rows []Row) ([]storage.ID, error) {
	const op = "remote.AppendData"

	resp, err := c.post(ctx, Request{
		Action:    ActionAppendData,
		SheetID:   c.sheetID,
		Timestamp: c.now().UTC().Format(time.RFC3339Nano),
		Data:      rows,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ids, err := resp.ids()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ids, nil
}

func (c *Client) GetActivityTypes(ctx context.Context) ([]storage.ActivityType, error) {
	const op = "remote.GetActivityTypes"

	resp, err := c.post(ctx, Request{Action: ActionGetActivities, SheetID: c.sheetID})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	items, err := decodeItems[storage.ActivityType](c.log, op, resp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}

func (c *Client) GetActualByNIK(ctx context.Context, nik string) ([]storage.Report, error) {
	const op = "remote.GetActualByNIK"

	resp, err := c.post(ctx, Request{Action: ActionGetActual, SheetID: c.sheetID, NIK: nik})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	items, err := decodeItems[storage.Report](c.log, op, resp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}

// Ping reports whether the endpoint is reachable. Any HTTP answer counts.
func (c *Client) Ping(ctx context.Context) error {
	const op = "remote.Ping"

	if _, err := c.http.R().SetContext(ctx).Head(c.url); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, req Request) (Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("encode request: %w", err)
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{"data": string(payload)}).
		Post(c.url)
	if err != nil {
		return Response{}, err
	}
	if res.IsError() {
		return Response{}, fmt.Errorf("HTTP %d: %w", res.StatusCode(), ErrBadResponse)
	}

	return decode(res.Body())
}

func decode(body []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return Response{}, fmt.Errorf("%v: %w", err, ErrBadResponse)
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "Response tidak valid"
		}
		return Response{}, fmt.Errorf("%s: %w", msg, ErrUnsuccessful)
	}
	return resp, nil
}

func (r Response) ids() ([]storage.ID, error) {
	if isMissing(r.SyncedIDs) {
		return nil, fmt.Errorf("syncedIds missing: %w", ErrBadResponse)
	}

	var ids []storage.ID
	if err := json.Unmarshal(r.SyncedIDs, &ids); err != nil {
		return nil, fmt.Errorf("syncedIds: %v: %w", err, ErrBadResponse)
	}
	return ids, nil
}

// decodeItems decodes the items list one element at a time. Elements that do
// not decode are logged and skipped, the list itself must be a JSON array.
func decodeItems[T any](log *slog.Logger, op string, r Response) ([]T, error) {
	if isMissing(r.Items) {
		return nil, fmt.Errorf("items missing: %w", ErrBadResponse)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(r.Items, &raw); err != nil {
		return nil, fmt.Errorf("items: %v: %w", err, ErrBadResponse)
	}

	items := make([]T, 0, len(raw))
	for i, item := range raw {
		var v T
		err := errors.New("null item")
		if !isMissing(item) {
			err = json.Unmarshal(item, &v)
		}
		if err != nil {
			log.Warn("skipping malformed item",
				slog.String("op", op),
				slog.Int("index", i),
				slog.String("error", err.Error()),
			)
			continue
		}
		items = append(items, v)
	}
	return items, nil
}

func isMissing(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
