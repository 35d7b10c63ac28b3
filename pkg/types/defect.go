package types

type ServiceType string

const (
	ServiceTypePD      ServiceType = "PD"
	ServiceTypeFS      ServiceType = "FS"
	ServiceTypeMVAC    ServiceType = "MVAC"
	ServiceTypeEL      ServiceType = "EL"
	ServiceTypeBonding ServiceType = "Bonding"
)

// ServiceTypes lists every service type in catalog order.
var ServiceTypes = []ServiceType{
	ServiceTypePD,
	ServiceTypeFS,
	ServiceTypeMVAC,
	ServiceTypeEL,
	ServiceTypeBonding,
}

const MaxRemarksLength = 500

// Defect is one recorded inspection finding. Rows are never updated in place.
type Defect struct {
	ID           int64       `db:"id" json:"id"`
	DefectID     string      `db:"defect_id" json:"defectId"`
	ProjectTitle string      `db:"project_title" json:"projectTitle"`
	ServiceType  ServiceType `db:"service_type" json:"serviceType"`
	Category     string      `db:"category" json:"category"`
	Location     string      `db:"location" json:"location"`
	Remarks      string      `db:"remarks" json:"remarks"`
	PhotoPath    string      `db:"photo_path" json:"photoPath"`
	CreatedAt    Timestamp   `db:"created_at" json:"createdAt"`
}

// NewDefect is the capture input before an ID, a stored photo path and a
// creation time have been assigned.
type NewDefect struct {
	ProjectTitle string      `form:"projectTitle" json:"projectTitle"`
	ServiceType  ServiceType `form:"serviceType" json:"serviceType"`
	Category     string      `form:"category" json:"category"`
	Location     string      `form:"location" json:"location"`
	Remarks      string      `form:"remarks" json:"remarks"`
	PhotoPath    string      `form:"-" json:"photoPath"`
}

// CategoryCount is one row of the per service type and category aggregate.
type CategoryCount struct {
	ServiceType ServiceType `db:"service_type" json:"serviceType"`
	Category    string      `db:"category" json:"category"`
	Count       int         `db:"count" json:"count"`
}
