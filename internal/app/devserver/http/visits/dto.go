package visits

type checkInInput struct {
	VisitID string `path:"visitID" doc:"Visit identifier"`
	Body    map[string]any
}

type checkOutInput struct {
	VisitID string `path:"visitID" doc:"Visit identifier"`
	Body    map[string]any
}

type taskCompleteInput struct {
	VisitID string `path:"visitID" doc:"Visit identifier"`
	TaskID  string `path:"taskID" doc:"Care-plan task identifier"`
	Body    map[string]any
}

type noteUpsertInput struct {
	VisitID string `path:"visitID" doc:"Visit identifier"`
	NoteID  string `path:"noteID" doc:"Care note identifier"`
	Body    map[string]any
}

type mutationOutput struct {
	Status int
	Body   mutationResponse
}

type mutationResponse struct {
	Status        string         `json:"status,omitempty"`
	RecordVersion int64          `json:"record_version,omitempty"`
	Error         string         `json:"error,omitempty"`
	ServerRecord  map[string]any `json:"server_record,omitempty"`
}

type seedInput struct {
	Body seedRequest
}

type seedRequest struct {
	Kind     string         `json:"kind" doc:"Record kind: visit, task or note" enum:"visit,task,note"`
	VisitID  string         `json:"visit_id" minLength:"1" doc:"Visit identifier"`
	RecordID string         `json:"record_id,omitempty" doc:"Task or note identifier, empty for the visit record"`
	Record   map[string]any `json:"record" doc:"Server-side record state to install"`
}

type seedOutput struct {
	Body seedResponse
}

type seedResponse struct {
	Status string         `json:"status"`
	Record map[string]any `json:"record"`
}
