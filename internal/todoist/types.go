package todoist

// errorResponse is the JSON error body returned by the Todoist API.
type errorResponse struct {
	Error string `json:"error"`
}

// TokenValidation is the outcome of a token check. A failed validation
// is not an error return: polling needs to distinguish "token rejected"
// from "request failed".
type TokenValidation struct {
	Valid bool
	Error string
}

// TaskFilters narrows a task listing. Zero-valued fields are omitted
// from the query string.
type TaskFilters struct {
	ProjectID string
	SectionID string
	Label     string
	Filter    string
	Lang      string
	IDs       []string
}

// CreateProjectRequest holds the parameters for creating a project.
type CreateProjectRequest struct {
	Name       string `json:"name"`
	Color      string `json:"color,omitempty"`
	ParentID   string `json:"parent_id,omitempty"`
	IsFavorite bool   `json:"is_favorite,omitempty"`
}

// CreateTaskRequest holds the parameters for creating a task.
type CreateTaskRequest struct {
	Content     string   `json:"content"`
	Description string   `json:"description,omitempty"`
	ProjectID   string   `json:"project_id,omitempty"`
	ParentID    string   `json:"parent_id,omitempty"`
	DueDate     string   `json:"due_date,omitempty"`
	Priority    int      `json:"priority,omitempty"`
	Labels      []string `json:"labels,omitempty"`
}
