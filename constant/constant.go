package constant

const (
	DefaultPageLimit = 10
)

const (
	EmptyString = ""
)
