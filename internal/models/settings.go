package models

// Department routes order items from a menu category to the station that
// prepares them. Departments with Precompleted set have no kitchen step, so
// items routed there enter an order already marked completed.
type Department struct {
	Name         string `json:"name"`
	Printer      string `json:"printer,omitempty"`
	Precompleted bool   `json:"precompleted,omitempty"`
}

// BusinessProfile is the tenant's public-facing profile.
type BusinessProfile struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

// TableReservation marks a table as held for an upcoming reservation so every
// staff device renders it as blocked.
type TableReservation struct {
	Table      string `json:"table"`
	Name       string `json:"name"`
	Time       string `json:"time,omitempty"`
	ReservedBy string `json:"reservedBy,omitempty"`
}

// SharedTable assigns a table to a serving staff member across devices.
type SharedTable struct {
	Table  string `json:"table"`
	Waiter string `json:"waiter"`
}

// CollabRequest is a pending cross-device collaboration request, e.g. a
// waiter asking to take over another waiter's table.
type CollabRequest struct {
	ID        string `json:"id"`
	Table     string `json:"table"`
	FromStaff string `json:"fromStaff"`
	ToStaff   string `json:"toStaff,omitempty"`
	Kind      string `json:"kind"`
}

// Settings is the single per-tenant configuration aggregate. It must always
// resolve to a complete value: absent remote fields are filled from
// DefaultSettings on every read.
type Settings struct {
	Profile            BusinessProfile    `json:"profile"`
	CategoryRouting    map[string]string  `json:"categoryRouting"`
	Departments        []Department       `json:"departments"`
	PaymentAPIKey      string             `json:"paymentApiKey,omitempty"`
	MessagingAPIKey    string             `json:"messagingApiKey,omitempty"`
	FeatureFlags       map[string]bool    `json:"featureFlags"`
	HistoryRetainDays  int                `json:"historyRetainDays"`
	TableReservations  []TableReservation `json:"tableReservations"`
	SharedTables       []SharedTable      `json:"sharedTables"`
	PendingCollabReqs  []CollabRequest    `json:"pendingCollabRequests"`
}

// DefaultSettings returns the hard-coded settings baseline.
func DefaultSettings() Settings {
	return Settings{
		Profile: BusinessProfile{Name: "My Restaurant"},
		CategoryRouting: map[string]string{
			"food":     "kitchen",
			"drinks":   "bar",
			"desserts": "kitchen",
		},
		Departments: []Department{
			{Name: "kitchen"},
			{Name: "bar", Precompleted: true},
		},
		FeatureFlags:      map[string]bool{},
		HistoryRetainDays: 30,
		TableReservations: []TableReservation{},
		SharedTables:      []SharedTable{},
		PendingCollabReqs: []CollabRequest{},
	}
}

// FillDefaults patches zero-valued fields of s from DefaultSettings so callers
// always see a complete aggregate.
func (s *Settings) FillDefaults() {
	def := DefaultSettings()
	if s.Profile.Name == "" {
		s.Profile.Name = def.Profile.Name
	}
	if len(s.CategoryRouting) == 0 {
		s.CategoryRouting = def.CategoryRouting
	}
	if len(s.Departments) == 0 {
		s.Departments = def.Departments
	}
	if s.FeatureFlags == nil {
		s.FeatureFlags = map[string]bool{}
	}
	if s.HistoryRetainDays <= 0 {
		s.HistoryRetainDays = def.HistoryRetainDays
	}
	if s.TableReservations == nil {
		s.TableReservations = []TableReservation{}
	}
	if s.SharedTables == nil {
		s.SharedTables = []SharedTable{}
	}
	if s.PendingCollabReqs == nil {
		s.PendingCollabReqs = []CollabRequest{}
	}
}

// DepartmentFor resolves the department an item's category routes to.
// Unrouted categories fall back to the first department.
func (s *Settings) DepartmentFor(category string) Department {
	name, ok := s.CategoryRouting[category]
	if ok {
		for _, d := range s.Departments {
			if d.Name == name {
				return d
			}
		}
	}
	if len(s.Departments) > 0 {
		return s.Departments[0]
	}
	return Department{Name: "kitchen"}
}
