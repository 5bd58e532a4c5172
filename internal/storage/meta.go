package storage

import "time"

const (
	MetaUserInfo   = "userInfo"
	MetaLastInputs = "lastInputs"
	MetaSyncMeta   = "syncMeta"
)

type UserInfo struct {
	MenteeName string `json:"menteeName"`
	MentorName string `json:"mentorName"`
	NIK        string `json:"nik,omitempty"`
}

// SyncMeta is informational only.
type SyncMeta struct {
	LastPush       *time.Time `json:"lastPush,omitempty"`
	LastMasterPull *time.Time `json:"lastMasterPull,omitempty"`
	LastActualPull *time.Time `json:"lastActualPull,omitempty"`
}

type FormInputs struct {
	Estate       string `json:"estate,omitempty"`
	Division     string `json:"divisi,omitempty"`
	ActivityType string `json:"actTyp,omitempty"`
	Job          string `json:"pekerjaan,omitempty"`
}

type LastInputs struct {
	Perawatan FormInputs `json:"perawatan"`
	Panen     FormInputs `json:"panen"`
}

func (l *LastInputs) For(kind Kind) FormInputs {
	if kind == KindHarvest {
		return l.Panen
	}
	return l.Perawatan
}

func (l *LastInputs) Set(kind Kind, in FormInputs) {
	if kind == KindHarvest {
		l.Panen = in
		return
	}
	l.Perawatan = in
}
