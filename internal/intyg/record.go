package intyg

// Signer roles printed on the certificates.
const (
	RoleSupervisor   = "HANDLEDARE"
	RoleCourseLeader = "KURSLEDARE"
	RoleSpecialist   = "SPECIALIST"
	RoleChief        = "CHEF"
)

// Period is a service period in ISO 8601 calendar dates (YYYY-MM-DD).
type Period struct {
	StartISO string `json:"startISO,omitempty" yaml:"start,omitempty"`
	EndISO   string `json:"endISO,omitempty" yaml:"end,omitempty"`
}

// Empty reports whether neither end is set.
func (p *Period) Empty() bool { return p == nil || (p.StartISO == "" && p.EndISO == "") }

// Mirrored returns a copy where a missing end takes the value of the other.
func (p Period) Mirrored() Period {
	switch {
	case p.StartISO == "" && p.EndISO != "":
		p.StartISO = p.EndISO
	case p.EndISO == "" && p.StartISO != "":
		p.EndISO = p.StartISO
	}
	return p
}

// Signer identifies the person who signed the certificate.
type Signer struct {
	Role           string `json:"role,omitempty"`
	Name           string `json:"name,omitempty"`
	Speciality     string `json:"speciality,omitempty"`
	Site           string `json:"site,omitempty"`
	PersonalNumber string `json:"personalNumber,omitempty"`
	PlaceDateRaw   string `json:"placeDateRaw,omitempty"`
}

// Record is the structured candidate extracted from one certificate. All
// fields except Kind are optional and empty when they could not be located.
type Record struct {
	Kind         Kind     `json:"kind"`
	FullName     string   `json:"fullName,omitempty"`
	FirstName    string   `json:"firstName,omitempty"`
	LastName     string   `json:"lastName,omitempty"`
	Personnummer string   `json:"personnummer,omitempty"`
	Specialty    string   `json:"specialtyHeader,omitempty"`
	DelmalCodes  []string `json:"delmalCodes,omitempty"`
	Subject      string   `json:"subject,omitempty"`
	Clinic       string   `json:"clinic,omitempty"`
	Period       *Period  `json:"period,omitempty"`
	// CertificateDate is the signing date read from "Ort och datum".
	CertificateDate string `json:"certificateDate,omitempty"`
	Description     string `json:"description,omitempty"`
	// CourseTitle keeps the raw course text; Title is the catalog name or
	// "Annan kurs" when no catalog entry matched.
	CourseTitle  string  `json:"courseTitle,omitempty"`
	Title        string  `json:"title,omitempty"`
	CourseLeader string  `json:"courseLeader,omitempty"`
	Signer       *Signer `json:"signer,omitempty"`
}

// Labels are the field captions a review form shows for a kind.
type Labels struct {
	Title            string `json:"title"`
	ClinicLabel      string `json:"clinicLabel"`
	DescriptionLabel string `json:"descriptionLabel"`
}

// LabelsFor returns the captions for k. Unknown and administrative kinds get
// the clinical service defaults.
func LabelsFor(k Kind) Labels {
	l := Labels{
		ClinicLabel:      "Tjänstgöringsställe",
		DescriptionLabel: "Beskrivning av den kliniska tjänstgöringen",
	}
	switch k {
	case Kind2015B7Skriftligt, Kind2021B12STa3:
		l.Title = "Självständigt skriftligt arbete"
		l.ClinicLabel = "Ämne (rubrik)"
		l.DescriptionLabel = "Beskrivning av det självständiga skriftliga arbetet"
	case Kind2015B6Utv, Kind2021B11Utv:
		l.Title = "Intyg för kvalitets- och utvecklingsarbete"
		l.DescriptionLabel = "Beskrivning av kvalitets- och utvecklingsarbete"
	case Kind2015B4Klin, Kind2021B9Klin:
		l.Title = "Intyg för klinisk tjänstgöring"
	case Kind2015B5Kurs, Kind2021B10Kurs:
		l.Title = "Intyg för kurs"
		l.ClinicLabel = "Kursens ämne"
		l.DescriptionLabel = "Beskrivning av kursen"
	case Kind2015B3Ausk, Kind2021B8Ausk:
		l.Title = "Intyg för auskultation"
	case Kind2021B13Tredjeland:
		l.Title = "Utbildningsaktiviteter i tredje land"
		l.DescriptionLabel = "Utbildningsaktiviteter och kontroll"
	}
	return l
}
