package event

// Payload keys carried by report events
const (
	KeyTitle        = "title"
	KeyActorName    = "actor_name"
	KeyDepartmentID = "department_id"
	KeySubmitterID  = "submitter_id"
	KeyStatus       = "status"
	KeyComments     = "comments"
	KeyAction       = "action"
	KeyFilePath     = "file_path"
)

// HasPayload reports whether key is present in the payload
func (e *Event) HasPayload(key string) bool {
	_, ok := e.Payload[key]
	return ok
}
