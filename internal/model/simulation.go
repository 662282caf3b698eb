package model

// Priority classifies how a shipment request is handled on the line.
type Priority string

const (
	PriorityNormal    Priority = "normal"
	PriorityUrgent    Priority = "urgent"
	PriorityPrototype Priority = "prototype"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityNormal, PriorityUrgent, PriorityPrototype:
		return true
	}
	return false
}

// Label returns the display label used in narratives.
func (p Priority) Label() string {
	switch p {
	case PriorityUrgent:
		return "至急"
	case PriorityPrototype:
		return "試作"
	default:
		return "通常"
	}
}

// Severity grades a production-load snapshot.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// Label returns the display label used in narratives.
func (s Severity) Label() string {
	switch s {
	case SeverityHigh:
		return "高"
	case SeverityMedium:
		return "中"
	default:
		return "低"
	}
}

// BlockStatus is the lifecycle of a schedule block.
type BlockStatus string

const (
	BlockConfirmed   BlockStatus = "confirmed"
	BlockAdjusting   BlockStatus = "adjusting"
	BlockNeedsReview BlockStatus = "needs-review"
)

// Valid reports whether s is a known block status.
func (s BlockStatus) Valid() bool {
	switch s {
	case BlockConfirmed, BlockAdjusting, BlockNeedsReview:
		return true
	}
	return false
}

// Label returns the display label used in exports.
func (s BlockStatus) Label() string {
	switch s {
	case BlockConfirmed:
		return "確定"
	case BlockAdjusting:
		return "調整中"
	default:
		return "要確認"
	}
}

// LeadTimeReference is the concept lead time a profile is based on.
type LeadTimeReference struct {
	Variant string `json:"variant" yaml:"variant"`
	Days    int    `json:"days" yaml:"days"`
	Reason  string `json:"reason" yaml:"reason"`
}

// InventoryReference is an inventory snapshot for the profile's SKU.
type InventoryReference struct {
	SKU       string `json:"sku" yaml:"sku"`
	Available int    `json:"available" yaml:"available"`
	Reserved  int    `json:"reserved" yaml:"reserved"`
	Comment   string `json:"comment" yaml:"comment"`
}

// ProductionLoadReference is a production-line utilization snapshot.
type ProductionLoadReference struct {
	Line               string   `json:"line" yaml:"line"`
	UtilizationPercent int      `json:"utilization_percent" yaml:"utilization_percent"`
	Severity           Severity `json:"severity" yaml:"severity"`
	Comment            string   `json:"comment" yaml:"comment"`
}

// ReferenceSnapshot groups the three read-only facts shown before the plans.
type ReferenceSnapshot struct {
	LeadTime       LeadTimeReference       `json:"lead_time" yaml:"lead_time"`
	Inventory      InventoryReference      `json:"inventory" yaml:"inventory"`
	ProductionLoad ProductionLoadReference `json:"production_load" yaml:"production_load"`
}

// SimulationPlan is one candidate shipment plan.
type SimulationPlan struct {
	Label               string `json:"label" yaml:"label"`
	ShipDate            string `json:"ship_date" yaml:"ship_date"` // ISO yyyy-mm-dd
	LeadTimeDays        int    `json:"lead_time_days" yaml:"lead_time_days"`
	Allocation          string `json:"allocation" yaml:"allocation"`
	ManufacturingWindow string `json:"manufacturing_window" yaml:"manufacturing_window"`
	Risk                string `json:"risk" yaml:"risk"`
	Note                string `json:"note" yaml:"note"`
}

// SimilarCase is a historical shipment comparable to the request.
type SimilarCase struct {
	ID           string `json:"id" yaml:"id"`
	Project      string `json:"project" yaml:"project"`
	Quantity     int    `json:"quantity" yaml:"quantity"`
	LeadTimeDays int    `json:"lead_time_days" yaml:"lead_time_days"`
	ShippedOn    string `json:"shipped_on" yaml:"shipped_on"`
	Outcome      string `json:"outcome" yaml:"outcome"`
	Note         string `json:"note" yaml:"note"`
}

// ScheduleBlock is a discrete task entry attached to a simulated plan.
type ScheduleBlock struct {
	ID        string      `json:"id" yaml:"id"`
	TimeFrame string      `json:"time_frame" yaml:"time_frame"`
	Focus     string      `json:"focus" yaml:"focus"`
	Owner     string      `json:"owner" yaml:"owner"`
	Status    BlockStatus `json:"status" yaml:"status"`
	Note      string      `json:"note" yaml:"note"`
}

// SimulationProfile is the fixture record for one product code.
// Plans[0] is the primary (shortest, recommended) plan.
type SimulationProfile struct {
	DefaultQuantity int               `json:"default_quantity" yaml:"default_quantity"`
	Priority        Priority          `json:"priority" yaml:"priority"`
	References      ReferenceSnapshot `json:"references" yaml:"references"`
	Plans           []SimulationPlan  `json:"plans" yaml:"plans"`
	History         []SimilarCase     `json:"history" yaml:"history"`
	Schedule        []ScheduleBlock   `json:"schedule" yaml:"schedule"`
}

// PrimaryPlan returns the first plan. Profiles are validated at load time to
// carry at least one plan.
func (p SimulationProfile) PrimaryPlan() SimulationPlan {
	return p.Plans[0]
}

// Alternatives returns every plan after the primary, in authored order.
func (p SimulationProfile) Alternatives() []SimulationPlan {
	return p.Plans[1:]
}

// Clone returns a deep copy so callers can never alias fixture slices.
func (p SimulationProfile) Clone() SimulationProfile {
	c := p
	c.Plans = append([]SimulationPlan(nil), p.Plans...)
	c.History = append([]SimilarCase(nil), p.History...)
	c.Schedule = append([]ScheduleBlock(nil), p.Schedule...)
	return c
}

// OrderInfo is what the extractor could find in free text.
type OrderInfo struct {
	ProjectName *string `json:"project_name"`
	Quantity    *int    `json:"quantity"`
}

// SimulationResult is the narrative plus the structured side-channel data.
type SimulationResult struct {
	ProjectName       string          `json:"project_name"`
	MatchedKey        string          `json:"matched_key"`
	Matched           bool            `json:"matched"`
	Priority          Priority        `json:"priority"`
	RequestedQuantity *int            `json:"requested_quantity,omitempty"`
	DefaultQuantity   int             `json:"default_quantity"`
	QuantityDelta     int             `json:"quantity_delta"`
	Narrative         string          `json:"narrative"`
	History           []SimilarCase   `json:"history"`
	Schedule          []ScheduleBlock `json:"schedule"`
	ShipDate          string          `json:"ship_date"`
}
