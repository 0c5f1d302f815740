package jwt

type Role int

const (
	RoleTenant Role = iota
	RoleAdmin
)

type Principal struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}
