package jiraapi

type Issue struct {
	ID          string
	Key         string
	Summary     string
	Description string
	Status      Status
	Type        string
	FixVersions []Version
	URL         string
}

type Status struct {
	Name     string
	Category string // new, indeterminate, done
}

type Version struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	ProjectID int    `json:"projectId,omitempty"`
	Released  bool   `json:"released"`
	Archived  bool   `json:"archived"`
}

func (i *Issue) HasFixVersion(name string) bool {
	for _, v := range i.FixVersions {
		if v.Name == name {
			return true
		}
	}
	return false
}
