package discovery

// Query identifies the library a discovery lookup is about.
type Query struct {
	Name      string `json:"name"`
	Version   string `json:"version,omitempty"`
	Ecosystem string `json:"ecosystem,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// Match is one candidate library returned by the discovery service.
// All fields are optional; absent fields stay at their zero value except
// Confidence, which is nil when the service did not report one.
type Match struct {
	Name           string   `json:"name,omitempty"`
	Description    string   `json:"description,omitempty"`
	OfficialSite   string   `json:"officialSite,omitempty"`
	Repository     string   `json:"repository,omitempty"`
	Version        string   `json:"version,omitempty"`
	License        string   `json:"license,omitempty"`
	LicenseURL     string   `json:"license_url,omitempty"`
	LicenseSummary []string `json:"licenseSummary,omitempty"`
	Evidence       []string `json:"evidence,omitempty"`
	Confidence     *float64 `json:"confidence,omitempty"`
}

// Report is the full answer to one discovery lookup. It lives only for
// the duration of the resolution that requested it; persistence happens
// by converting matches into library records.
type Report struct {
	Query   Query   `json:"query"`
	Matches []Match `json:"matches"`
	Summary string  `json:"summary,omitempty"`
}

// Best returns the first match, or nil when the report is empty.
func (r *Report) Best() *Match {
	if r == nil || len(r.Matches) == 0 {
		return nil
	}
	return &r.Matches[0]
}
