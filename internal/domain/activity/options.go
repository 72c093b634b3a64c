package activity

// ListActivityOptions provides filtering options for listing activity.
type ListActivityOptions struct {
	Generation   string
	ActivityType *ActivityType
	Limit        int
	Offset       int
}
