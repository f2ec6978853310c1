package llm

import "time"

// Recognized data schema keys for the typed-record strategy.
const (
	KeyResume       = "resume"
	KeyCard         = "card"
	KeyRegistration = "registration_for_ngo_npo"
)

// RecordDef binds a data schema key to a typed record: a constructor for
// decoding and a JSON-Schema builder used as the model's output constraint
// and for local validation.
type RecordDef struct {
	Key    string
	New    func() any
	Schema func() map[string]any
}

var registry = map[string]RecordDef{
	KeyResume:       {Key: KeyResume, New: func() any { return &Resume{} }, Schema: BuildResumeJSONSchema},
	KeyCard:         {Key: KeyCard, New: func() any { return &Card{} }, Schema: BuildCardJSONSchema},
	KeyRegistration: {Key: KeyRegistration, New: func() any { return &RegistrationForm{} }, Schema: BuildRegistrationJSONSchema},
}

// LookupRecord resolves a data schema key to its typed record definition.
func LookupRecord(key string) (RecordDef, bool) {
	def, ok := registry[key]
	return def, ok
}

// RecordKeys lists the recognized typed-record schema keys.
func RecordKeys() []string {
	return []string{KeyResume, KeyCard, KeyRegistration}
}

// Resume is the normalized shape for resume documents.
type Resume struct {
	FullName       string           `json:"full_name"`
	Email          string           `json:"email,omitempty"`
	Phone          string           `json:"phone,omitempty"`
	Location       string           `json:"location,omitempty"`
	Summary        string           `json:"professional_summary,omitempty"`
	NationalID     string           `json:"national_id,omitempty"`
	Education      []Education      `json:"education,omitempty"`
	WorkExperience []WorkExperience `json:"work_experience,omitempty"`
	Skills         []SkillGroup     `json:"skills,omitempty"`
	Projects       []Project        `json:"projects,omitempty"`
	Certifications []Certification  `json:"certifications,omitempty"`
	Languages      []LanguageSkill  `json:"languages,omitempty"`
	Links          []Link           `json:"links,omitempty"`
}

type Education struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	GPA         string `json:"gpa,omitempty"`
}

type WorkExperience struct {
	Company    string   `json:"company"`
	Title      string   `json:"title,omitempty"`
	StartDate  string   `json:"start_date,omitempty"`
	EndDate    string   `json:"end_date,omitempty"`
	Highlights []string `json:"highlights,omitempty"`
}

type SkillGroup struct {
	Category string   `json:"category"`
	Items    []string `json:"items,omitempty"`
}

type Project struct {
	Name       string   `json:"name"`
	StartDate  string   `json:"start_date,omitempty"`
	EndDate    string   `json:"end_date,omitempty"`
	Highlights []string `json:"highlights,omitempty"`
}

type Certification struct {
	Name         string `json:"name"`
	Issuer       string `json:"issuer,omitempty"`
	IssuedDate   string `json:"issued_date,omitempty"`
	CredentialID string `json:"credential_id,omitempty"`
}

type LanguageSkill struct {
	Language    string `json:"language"`
	Proficiency string `json:"proficiency,omitempty"`
}

type Link struct {
	Label string `json:"label,omitempty"`
	URL   string `json:"url"`
}

// Card is the normalized shape for business card documents.
type Card struct {
	FullName string `json:"full_name"`
	JobTitle string `json:"job_title,omitempty"`
	Company  string `json:"company,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Website  string `json:"website,omitempty"`
	Address  string `json:"address,omitempty"`
}

// RegistrationForm is the normalized shape for NGO/NPO registration forms.
type RegistrationForm struct {
	OrganisationName string `json:"organisation_name"`
	Acronym          string `json:"acronym,omitempty"`
	OrganisationType string `json:"organisation_type,omitempty"`
	Identifier       string `json:"identifier,omitempty"`
	IssuedBy         string `json:"issued_by,omitempty"`
	LogoURL          string `json:"logo_url,omitempty"`
	Mission          string `json:"mission,omitempty"`
	Vision           string `json:"vision,omitempty"`
	Objectives       string `json:"objectives,omitempty"`
	ContactPerson    string `json:"contact_person,omitempty"`
	ContactRole      string `json:"contact_role,omitempty"`
	ContactType      string `json:"contact_type,omitempty"`
	ContactValue     string `json:"contact_value,omitempty"`
	Address1         string `json:"address_1,omitempty"`
	Address2         string `json:"address_2,omitempty"`
	PostalCode       string `json:"postal_code,omitempty"`
	Country          string `json:"country,omitempty"`
	Amount           string `json:"amount,omitempty"`
	AccountType      string `json:"account_type,omitempty"`
}

// CaseDetails carries the workflow routing fields attached to registration
// cases. It flattens through the JSON-safety visitor, rendering AssignedDate
// as an ISO-8601 string.
type CaseDetails struct {
	CaseTypeID   string
	CaseSubType  string
	WorkflowID   string
	AssignerID   string
	AssignedDate time.Time
	AssigneeID   string
	StatusID     string
	ActionID     string
	IsEditable   bool
}

func (c CaseDetails) PlainFields() map[string]any {
	return map[string]any{
		"ocdCaseTypeId":    c.CaseTypeID,
		"ocdCaseSubTypeId": c.CaseSubType,
		"ocdWorkflowId":    c.WorkflowID,
		"ocdAssignerId":    c.AssignerID,
		"ocdAssignedDate":  c.AssignedDate,
		"ocdAssigneeId":    c.AssigneeID,
		"ocdStatusId":      c.StatusID,
		"ocdActionId":      c.ActionID,
		"ocdIsEditable":    c.IsEditable,
	}
}

var _ Record = CaseDetails{}

// DefaultCaseDetails returns the static workflow routing attached to
// registration cases until case management is wired to a live workflow
// engine.
func DefaultCaseDetails() CaseDetails {
	return CaseDetails{
		CaseTypeID:   "REGISTRATION",
		CaseSubType:  "REGISTRATION_OF_NGO",
		WorkflowID:   "WORKFLOW_4984513156789455123",
		AssignerID:   "usr_5224442c22335w651",
		AssignedDate: time.Date(2024, time.October, 7, 0, 0, 0, 0, time.UTC),
		AssigneeID:   "usr_5224442c223354651",
		StatusID:     "STATUS_4984513156789455123",
		ActionID:     "ACTION_4984513156789455123",
		IsEditable:   false,
	}
}

// BuildResumeJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. Passed to the model as a structured output constraint and
// used locally to validate the response.
func BuildResumeJSONSchema() map[string]any {
	dated := func(extra map[string]any, required ...string) map[string]any {
		props := map[string]any{
			"start_date": strProp(),
			"end_date":   strProp(),
		}
		for k, v := range extra {
			props[k] = v
		}
		return objProp(props, required...)
	}

	props := map[string]any{
		"full_name":            map[string]any{"type": "string", "minLength": 1},
		"email":                strProp(),
		"phone":                strProp(),
		"location":             strProp(),
		"professional_summary": strProp(),
		"national_id":          strProp(),
		"education": arrayProp(dated(map[string]any{
			"institution": strProp(),
			"degree":      strProp(),
			"gpa":         strProp(),
		}, "institution")),
		"work_experience": arrayProp(dated(map[string]any{
			"company":    strProp(),
			"title":      strProp(),
			"highlights": arrayProp(strProp()),
		}, "company")),
		"skills": arrayProp(objProp(map[string]any{
			"category": strProp(),
			"items":    arrayProp(strProp()),
		}, "category")),
		"projects": arrayProp(dated(map[string]any{
			"name":       strProp(),
			"highlights": arrayProp(strProp()),
		}, "name")),
		"certifications": arrayProp(objProp(map[string]any{
			"name":          strProp(),
			"issuer":        strProp(),
			"issued_date":   strProp(),
			"credential_id": strProp(),
		}, "name")),
		"languages": arrayProp(objProp(map[string]any{
			"language":    strProp(),
			"proficiency": strProp(),
		}, "language")),
		"links": arrayProp(objProp(map[string]any{
			"label": strProp(),
			"url":   strProp(),
		}, "url")),
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             []string{"full_name"},
	}
}

// BuildCardJSONSchema returns the output constraint for business cards.
func BuildCardJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"full_name": map[string]any{"type": "string", "minLength": 1},
			"job_title": strProp(),
			"company":   strProp(),
			"email":     strProp(),
			"phone":     strProp(),
			"website":   strProp(),
			"address":   strProp(),
		},
		"required": []string{"full_name"},
	}
}

// BuildRegistrationJSONSchema returns the output constraint for NGO/NPO
// registration forms.
func BuildRegistrationJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"organisation_name": map[string]any{"type": "string", "minLength": 1},
			"acronym":           strProp(),
			"organisation_type": strProp(),
			"identifier":        strProp(),
			"issued_by":         strProp(),
			"logo_url":          strProp(),
			"mission":           strProp(),
			"vision":            strProp(),
			"objectives":        strProp(),
			"contact_person":    strProp(),
			"contact_role":      strProp(),
			"contact_type":      strProp(),
			"contact_value":     strProp(),
			"address_1":         strProp(),
			"address_2":         strProp(),
			"postal_code":       strProp(),
			"country":           strProp(),
			"amount":            strProp(),
			"account_type":      strProp(),
		},
		"required": []string{"organisation_name"},
	}
}

func strProp() map[string]any {
	return map[string]any{"type": "string"}
}

func arrayProp(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}

func objProp(props map[string]any, required ...string) map[string]any {
	out := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}
