package storage

import "strings"

type Kind string

const (
	KindMaintenance Kind = "perawatan"
	KindHarvest     Kind = "panen"
)

func (k Kind) Valid() bool {
	return k == KindMaintenance || k == KindHarvest
}

// ParseKind accepts the wire names and their english aliases.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "perawatan", "maintenance":
		return KindMaintenance, true
	case "panen", "harvest":
		return KindHarvest, true
	}
	return "", false
}

type Worker struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type Material struct {
	Type     string  `json:"type"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// Report is a single daily field report. Maintenance reports use Workers and
// Materials, harvest reports use the tonnage and logistics fields.
type Report struct {
	ID           ID     `json:"id"`
	Type         Kind   `json:"type"`
	Timestamp    string `json:"timestamp"`
	Estate       string `json:"estate"`
	Division     int    `json:"divisi"`
	Block        string `json:"blok"`
	Date         string `json:"tanggal"`
	ActivityType string `json:"actTyp"`
	Job          string `json:"pekerjaan"`
	Remarks      string `json:"keterangan"`
	Synced       bool   `json:"synced"`

	PlannedArea float64 `json:"rencanaHa"`
	ActualArea  float64 `json:"aktualHa"`

	Workers   []Worker   `json:"workers,omitempty"`
	Materials []Material `json:"materials,omitempty"`

	PlannedTon float64 `json:"rencanaTon,omitempty"`
	ActualTon  float64 `json:"aktualTon,omitempty"`
	Labor      int     `json:"tenagaKerja,omitempty"`
	ShippedTon float64 `json:"kirimTon,omitempty"`
	CarryOver  float64 `json:"restan,omitempty"`
	Rotation   string  `json:"pusingan,omitempty"`
	Feeder     string  `json:"feeder,omitempty"`
	Truck      string  `json:"truk,omitempty"`
}

// WorkerTotal sums the worker counts of a maintenance report.
func (r *Report) WorkerTotal() int {
	total := 0
	for _, w := range r.Workers {
		total += w.Count
	}
	return total
}
