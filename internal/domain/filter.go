package domain

// FilterCriteria holds the raw, user-entered filter form. Every field is
// optional and matched exactly; an empty string means "no constraint".
// FromTs and ToTs are kept as typed, e.g. "2024-01-01T10:00".
type FilterCriteria struct {
	ProjectName  string
	AppName      string
	Microservice string
	Level        string
	FromTs       string
	ToTs         string
}

// FilterField names one editable field of FilterCriteria. The values double
// as the query parameter names understood by GET /logs.
type FilterField string

const (
	FieldProjectName  FilterField = "projectName"
	FieldAppName      FilterField = "appName"
	FieldMicroservice FilterField = "microservice"
	FieldLevel        FilterField = "level"
	FieldFromTs       FilterField = "fromTs"
	FieldToTs         FilterField = "toTs"
)

// FilterFields lists the fields in form order.
var FilterFields = []FilterField{
	FieldProjectName,
	FieldAppName,
	FieldMicroservice,
	FieldLevel,
	FieldFromTs,
	FieldToTs,
}

// Get returns the value of field f.
func (c FilterCriteria) Get(f FilterField) string {
	switch f {
	case FieldProjectName:
		return c.ProjectName
	case FieldAppName:
		return c.AppName
	case FieldMicroservice:
		return c.Microservice
	case FieldLevel:
		return c.Level
	case FieldFromTs:
		return c.FromTs
	case FieldToTs:
		return c.ToTs
	}
	return ""
}

// With returns a copy of c with field f set to value.
func (c FilterCriteria) With(f FilterField, value string) FilterCriteria {
	switch f {
	case FieldProjectName:
		c.ProjectName = value
	case FieldAppName:
		c.AppName = value
	case FieldMicroservice:
		c.Microservice = value
	case FieldLevel:
		c.Level = value
	case FieldFromTs:
		c.FromTs = value
	case FieldToTs:
		c.ToTs = value
	}
	return c
}

// FilterOptions holds the selectable values for each dropdown dimension.
// It is always replaced as a whole, never merged.
type FilterOptions struct {
	Projects      []string `json:"projects"`
	Apps          []string `json:"apps"`
	Microservices []string `json:"microservices"`
	Levels        []string `json:"levels"`
}

// For returns the option list backing field f. Timestamp fields have none.
func (o FilterOptions) For(f FilterField) []string {
	switch f {
	case FieldProjectName:
		return o.Projects
	case FieldAppName:
		return o.Apps
	case FieldMicroservice:
		return o.Microservices
	case FieldLevel:
		return o.Levels
	}
	return nil
}
