package reference

// Author is a record author as INSPIRE reports it.
type Author struct {
	FullName string `json:"full_name" msgpack:"full_name"` // "Last, First" as indexed by INSPIRE
}
