package api

// OperationInfo provides metadata about a binding operation.
type OperationInfo struct {
	// Name is the operation identifier (e.g., "create_issue")
	Name string

	// Description is a human-readable description
	Description string

	// Category groups related operations (e.g., "issues", "pulls", "repos")
	Category string

	// Tags classify operations (e.g., "write", "paginated")
	Tags []string
}

// HasTag reports whether the operation carries tag.
func (o OperationInfo) HasTag(tag string) bool {
	for _, t := range o.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
