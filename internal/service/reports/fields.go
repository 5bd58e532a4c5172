package reports

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"agro-report/internal/storage"
)

var ErrValidation = errors.New("validation failed")

// ValidationError lists the mandatory fields that were left empty. Message
// overrides the report form text for other forms.
type ValidationError struct {
	Missing []string
	Message string
}

func (e *ValidationError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "Estate, Divisi, Blok, Tanggal, ActTyp dan Pekerjaan harus diisi!"
	}
	return msg + " (missing: " + strings.Join(e.Missing, ", ") + ")"
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Input is a raw form value. It decodes from JSON strings, numbers and null so
// that clients may post either.
type Input string

func (in *Input) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*in = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*in = Input(s)
		return nil
	}
	*in = Input(data)
	return nil
}

func (in Input) String() string {
	return strings.TrimSpace(string(in))
}

// Float parses the value. Unparsable, empty and non-finite input is zero.
func (in Input) Float() float64 {
	f, err := strconv.ParseFloat(in.String(), 64)
	if err != nil {
		return 0
	}
	return storage.Finite(f)
}

// Int truncates like parseInt does: "5.7" is 5, garbage is zero. Values out
// of the int range are zero as well.
func (in Input) Int() int {
	s := in.String()
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return storage.IntOf(f)
	}
	return 0
}

type WorkerInput struct {
	Type  Input `json:"type"`
	Count Input `json:"count"`
}

type MaterialInput struct {
	Type     Input `json:"type"`
	Quantity Input `json:"quantity"`
	Unit     Input `json:"unit"`
}

// Fields is the content of a report form, as typed by the user.
type Fields struct {
	Estate       Input `json:"estate"`
	Division     Input `json:"divisi"`
	Block        Input `json:"blok"`
	Date         Input `json:"tanggal"`
	ActivityType Input `json:"actTyp"`
	Job          Input `json:"pekerjaan"`
	Remarks      Input `json:"keterangan"`

	PlannedArea Input `json:"rencanaHa"`
	ActualArea  Input `json:"aktualHa"`

	Workers   []WorkerInput   `json:"workers,omitempty"`
	Materials []MaterialInput `json:"materials,omitempty"`

	PlannedTon Input `json:"rencanaTon,omitempty"`
	ActualTon  Input `json:"aktualTon,omitempty"`
	Labor      Input `json:"tenagaKerja,omitempty"`
	ShippedTon Input `json:"kirimTon,omitempty"`
	CarryOver  Input `json:"restan,omitempty"`
	Rotation   Input `json:"pusingan,omitempty"`
	Feeder     Input `json:"feeder,omitempty"`
	Truck      Input `json:"truk,omitempty"`
}

func (f Fields) validate() error {
	var missing []string
	check := func(name string, v Input) {
		if v.String() == "" {
			missing = append(missing, name)
		}
	}

	check("estate", f.Estate)
	check("divisi", f.Division)
	if f.Division.String() != "" {
		if n, err := strconv.Atoi(f.Division.String()); err != nil || n < 1 {
			missing = append(missing, "divisi")
		}
	}
	check("blok", f.Block)
	check("tanggal", f.Date)
	check("actTyp", f.ActivityType)
	check("pekerjaan", f.Job)

	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// build turns validated fields into a report. Line items without a name or
// with a non-positive quantity are dropped.
func (f Fields) build(kind storage.Kind) storage.Report {
	division, _ := strconv.Atoi(f.Division.String())

	r := storage.Report{
		Type:         kind,
		Estate:       f.Estate.String(),
		Division:     division,
		Block:        f.Block.String(),
		Date:         f.Date.String(),
		ActivityType: f.ActivityType.String(),
		Job:          f.Job.String(),
		Remarks:      f.Remarks.String(),
		PlannedArea:  f.PlannedArea.Float(),
		ActualArea:   f.ActualArea.Float(),
	}

	switch kind {
	case storage.KindMaintenance:
		for _, w := range f.Workers {
			if t, n := w.Type.String(), w.Count.Int(); t != "" && n > 0 {
				r.Workers = append(r.Workers, storage.Worker{Type: t, Count: n})
			}
		}
		for _, m := range f.Materials {
			if t, q := m.Type.String(), m.Quantity.Float(); t != "" && q > 0 {
				r.Materials = append(r.Materials, storage.Material{Type: t, Quantity: q, Unit: m.Unit.String()})
			}
		}
	case storage.KindHarvest:
		r.PlannedTon = f.PlannedTon.Float()
		r.ActualTon = f.ActualTon.Float()
		r.Labor = f.Labor.Int()
		r.ShippedTon = f.ShippedTon.Float()
		r.CarryOver = f.CarryOver.Float()
		r.Rotation = f.Rotation.String()
		r.Feeder = f.Feeder.String()
		r.Truck = f.Truck.String()
	}

	return r
}

// FieldsFrom refills a form from a stored report. Maintenance forms always get
// at least one blank worker and material line.
func FieldsFrom(r storage.Report) Fields {
	f := Fields{
		Estate:       Input(r.Estate),
		Division:     Input(strconv.Itoa(r.Division)),
		Block:        Input(r.Block),
		Date:         Input(r.Date),
		ActivityType: Input(r.ActivityType),
		Job:          Input(r.Job),
		Remarks:      Input(r.Remarks),
		PlannedArea:  num(r.PlannedArea),
		ActualArea:   num(r.ActualArea),
	}

	if r.Type == storage.KindHarvest {
		f.PlannedTon = num(r.PlannedTon)
		f.ActualTon = num(r.ActualTon)
		f.Labor = Input(strconv.Itoa(r.Labor))
		f.ShippedTon = num(r.ShippedTon)
		f.CarryOver = num(r.CarryOver)
		f.Rotation = Input(r.Rotation)
		f.Feeder = Input(r.Feeder)
		f.Truck = Input(r.Truck)
		return f
	}

	for _, w := range r.Workers {
		f.Workers = append(f.Workers, WorkerInput{Type: Input(w.Type), Count: Input(strconv.Itoa(w.Count))})
	}
	for _, m := range r.Materials {
		f.Materials = append(f.Materials, MaterialInput{Type: Input(m.Type), Quantity: num(m.Quantity), Unit: Input(m.Unit)})
	}
	if len(f.Workers) == 0 {
		f.Workers = []WorkerInput{{}}
	}
	if len(f.Materials) == 0 {
		f.Materials = []MaterialInput{{}}
	}

	return f
}

func num(v float64) Input {
	return Input(strconv.FormatFloat(v, 'f', -1, 64))
}
