package chat

import "strings"

// PhoneDeclined is the sentinel stored when a citizen refuses to share a
// phone number. It is a valid terminal value and maps to NULL at commit time.
const PhoneDeclined = "declined"

// Islands is the fixed enumeration of Bahamian islands accepted for the
// island demographic.
var Islands = []string{
	"New Providence (Nassau)", "Grand Bahama (Freeport)", "Abaco", "Andros",
	"Eleuthera", "Exuma", "Long Island", "Cat Island", "San Salvador", "Bimini",
	"Inagua", "Acklins", "Berry Islands", "Crooked Island", "Mayaguana",
	"Ragged Island", "Rum Cay",
}

// AgeGroups is the fixed enumeration of age brackets.
var AgeGroups = []string{"18-24", "25-34", "35-44", "45-54", "55-64", "65+"}

// Sectors is the fixed enumeration of work sectors.
var Sectors = []string{
	"Technology & Innovation", "Tourism & Hospitality", "Financial Services",
	"Healthcare", "Education", "Government & Public Service",
	"Agriculture & Fisheries", "Real Estate & Construction", "Retail & Commerce",
	"Transportation & Logistics", "Arts, Culture & Entertainment",
	"Non-Profit & Community", "Student", "Retired", "Other",
}

// demographicSlots is the fixed slot count D used by the progress metric.
const demographicSlots = 9

// Demographics is the partially-filled identity record of one interview.
// LivesInBahamas is tri-state: nil means not yet resolved.
type Demographics struct {
	FirstName      string  `json:"first_name,omitempty"`
	LastName       string  `json:"last_name,omitempty"`
	Email          string  `json:"email,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	LivesInBahamas *bool   `json:"lives_in_bahamas,omitempty"`
	Island         string  `json:"island,omitempty"`
	Country        string  `json:"country,omitempty"`
	AgeGroup       string  `json:"age_group,omitempty"`
	Sector         string  `json:"sector,omitempty"`
}

// Complete reports whether every required demographic is present: names,
// email, resolved residency, island, country when living abroad, age group,
// and sector. Phone is never required.
func (d *Demographics) Complete() bool {
	if d.FirstName == "" || d.LastName == "" || d.Email == "" {
		return false
	}
	if d.LivesInBahamas == nil {
		return false
	}
	if d.Island == "" {
		return false
	}
	if !*d.LivesInBahamas && d.Country == "" {
		return false
	}
	if d.AgeGroup == "" || d.Sector == "" {
		return false
	}
	return true
}

// Missing lists the fields still needed, phrased for the system prompt.
func (d *Demographics) Missing() []string {
	var missing []string
	if d.FirstName == "" {
		missing = append(missing, "first_name")
	}
	if d.LastName == "" {
		missing = append(missing, "last_name")
	}
	if d.Email == "" {
		missing = append(missing, "email")
	}
	if d.Phone == nil {
		missing = append(missing, "phone (optional)")
	}
	if d.LivesInBahamas == nil {
		missing = append(missing, "lives_in_bahamas (do they live in The Bahamas? yes/no)")
	}
	if d.Island == "" {
		missing = append(missing, "island (which Bahamian island they are most connected to)")
	}
	if d.LivesInBahamas != nil && !*d.LivesInBahamas && d.Country == "" {
		missing = append(missing, "country")
	}
	if d.AgeGroup == "" {
		missing = append(missing, "age_group")
	}
	if d.Sector == "" {
		missing = append(missing, "sector")
	}
	return missing
}

// CollectedCount counts filled slots out of the fixed demographicSlots total.
// Country only counts once residency is resolved; residents get it for free
// since it is not required of them.
func (d *Demographics) CollectedCount() int {
	count := 0
	if d.FirstName != "" {
		count++
	}
	if d.LastName != "" {
		count++
	}
	if d.Email != "" {
		count++
	}
	if d.Phone != nil {
		count++
	}
	if d.LivesInBahamas != nil {
		count++
	}
	if d.Island != "" {
		count++
	}
	if d.LivesInBahamas != nil {
		if *d.LivesInBahamas {
			count++
		} else if d.Country != "" {
			count++
		}
	}
	if d.AgeGroup != "" {
		count++
	}
	if d.Sector != "" {
		count++
	}
	return count
}

// Clone returns a deep copy, covering both pointer fields.
func (d *Demographics) Clone() Demographics {
	out := *d
	if d.Phone != nil {
		phone := *d.Phone
		out.Phone = &phone
	}
	if d.LivesInBahamas != nil {
		lives := *d.LivesInBahamas
		out.LivesInBahamas = &lives
	}
	return out
}

// DemographicPatch is the partial demographics object the extraction model
// may return for one turn. Empty strings mean "not extracted".
type DemographicPatch struct {
	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	LivesInBahamas *bool  `json:"lives_in_bahamas,omitempty"`
	Island         string `json:"island,omitempty"`
	Country        string `json:"country,omitempty"`
	AgeGroup       string `json:"age_group,omitempty"`
	Sector         string `json:"sector,omitempty"`
}

// Merge applies a patch with overwrite-if-present semantics: fields the model
// did not return are untouched. Enumerated fields pass through an allow-list;
// values outside the enumeration are dropped rather than stored. This is the
// validation boundary between model output and session state.
func (d *Demographics) Merge(p *DemographicPatch) {
	if p == nil {
		return
	}
	if v := strings.TrimSpace(p.FirstName); v != "" {
		d.FirstName = v
	}
	if v := strings.TrimSpace(p.LastName); v != "" {
		d.LastName = v
	}
	if v := strings.TrimSpace(p.Email); v != "" {
		d.Email = v
	}
	if v := strings.TrimSpace(p.Phone); v != "" {
		if strings.EqualFold(v, PhoneDeclined) {
			v = PhoneDeclined
		}
		d.Phone = &v
	}
	if p.LivesInBahamas != nil {
		lives := *p.LivesInBahamas
		d.LivesInBahamas = &lives
	}
	if v, ok := matchEnum(p.Island, Islands); ok {
		d.Island = v
	}
	if v := strings.TrimSpace(p.Country); v != "" {
		d.Country = v
	}
	if v, ok := matchEnum(p.AgeGroup, AgeGroups); ok {
		d.AgeGroup = v
	}
	if v, ok := matchEnum(p.Sector, Sectors); ok {
		d.Sector = v
	}
}

// matchEnum resolves a value against an enumeration case-insensitively and
// returns the canonical entry.
func matchEnum(value string, allowed []string) (string, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", false
	}
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return a, true
		}
	}
	return "", false
}
