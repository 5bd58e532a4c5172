package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseNumber reads a number typed into a form or a sheet cell. Blank,
// unparsable and non-finite input is zero. A comma is accepted as the
// decimal separator when the value has no dot.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if !strings.Contains(s, ".") && strings.Count(s, ",") == 1 {
		s = strings.Replace(s, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return Finite(f)
}

// Finite maps NaN and infinities to zero.
func Finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// IntOf truncates f toward zero. Values an int cannot hold are zero.
func IntOf(f float64) int {
	f = Finite(f)
	if f >= math.MaxInt || f <= math.MinInt {
		return 0
	}
	return int(f)
}

// Number decodes JSON numbers and numeric strings. Legacy browser data and
// sheet rows carry "", "1,5" or null where a number is expected.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*n = 0
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Number(ParseNumber(s))
	case data[0] == '{', data[0] == '[':
		return fmt.Errorf("storage.Number: expected number, got %s", data)
	default:
		*n = Number(ParseNumber(string(data)))
	}
	return nil
}

// Text decodes JSON strings, and numbers or booleans as their literal text.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*t = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case data[0] == '{', data[0] == '[':
		return fmt.Errorf("storage.Text: expected string, got %s", data)
	default:
		*t = Text(data)
	}
	return nil
}

// Flag decodes booleans, "true"/"false" strings and 0/1.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	var t Text
	if err := t.UnmarshalJSON(data); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(string(t))) {
	case "true", "1", "yes", "ya":
		*f = true
	default:
		*f = false
	}
	return nil
}

func (r *Report) UnmarshalJSON(data []byte) error {
	var w struct {
		ID           ID         `json:"id"`
		Type         Text       `json:"type"`
		Timestamp    Text       `json:"timestamp"`
		Estate       Text       `json:"estate"`
		Division     Number     `json:"divisi"`
		Block        Text       `json:"blok"`
		Date         Text       `json:"tanggal"`
		ActivityType Text       `json:"actTyp"`
		Job          Text       `json:"pekerjaan"`
		Remarks      Text       `json:"keterangan"`
		Synced       Flag       `json:"synced"`
		PlannedArea  Number     `json:"rencanaHa"`
		ActualArea   Number     `json:"aktualHa"`
		Workers      []Worker   `json:"workers"`
		Materials    []Material `json:"materials"`
		PlannedTon   Number     `json:"rencanaTon"`
		ActualTon    Number     `json:"aktualTon"`
		Labor        Number     `json:"tenagaKerja"`
		ShippedTon   Number     `json:"kirimTon"`
		CarryOver    Number     `json:"restan"`
		Rotation     Text       `json:"pusingan"`
		Feeder       Text       `json:"feeder"`
		Truck        Text       `json:"truk"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("storage.Report: %w", err)
	}

	kind := Kind(w.Type)
	if k, ok := ParseKind(string(w.Type)); ok {
		kind = k
	}

	*r = Report{
		ID:           w.ID,
		Type:         kind,
		Timestamp:    string(w.Timestamp),
		Estate:       string(w.Estate),
		Division:     IntOf(float64(w.Division)),
		Block:        string(w.Block),
		Date:         string(w.Date),
		ActivityType: string(w.ActivityType),
		Job:          string(w.Job),
		Remarks:      string(w.Remarks),
		Synced:       bool(w.Synced),
		PlannedArea:  float64(w.PlannedArea),
		ActualArea:   float64(w.ActualArea),
		Workers:      w.Workers,
		Materials:    w.Materials,
		PlannedTon:   float64(w.PlannedTon),
		ActualTon:    float64(w.ActualTon),
		Labor:        IntOf(float64(w.Labor)),
		ShippedTon:   float64(w.ShippedTon),
		CarryOver:    float64(w.CarryOver),
		Rotation:     string(w.Rotation),
		Feeder:       string(w.Feeder),
		Truck:        string(w.Truck),
	}
	return nil
}

func (w *Worker) UnmarshalJSON(data []byte) error {
	var v struct {
		Type  Text   `json:"type"`
		Count Number `json:"count"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*w = Worker{Type: string(v.Type), Count: IntOf(float64(v.Count))}
	return nil
}

func (m *Material) UnmarshalJSON(data []byte) error {
	var v struct {
		Type     Text   `json:"type"`
		Quantity Number `json:"quantity"`
		Unit     Text   `json:"unit"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Material{Type: string(v.Type), Quantity: float64(v.Quantity), Unit: string(v.Unit)}
	return nil
}

func (a *ActivityType) UnmarshalJSON(data []byte) error {
	var v struct {
		Category Text `json:"type"`
		Code     Text `json:"code"`
		Desc     Text `json:"desc"`
		Job      Text `json:"job"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	category := Kind(strings.TrimSpace(string(v.Category)))
	if k, ok := ParseKind(string(v.Category)); ok {
		category = k
	}
	*a = ActivityType{
		Category: category,
		Code:     strings.TrimSpace(string(v.Code)),
		Desc:     string(v.Desc),
		Job:      string(v.Job),
	}
	return nil
}
