package jwt

var RoleSecrets = map[Role]string{
	RoleTenant: "",
	RoleAdmin:  "",
}

// SetRoleSecrets is called once from the cmd entrypoints with the
// environment-sourced secrets. Tests assign RoleSecrets directly.
func SetRoleSecrets(tenantSecret, adminSecret string) {
	RoleSecrets[RoleTenant] = tenantSecret
	RoleSecrets[RoleAdmin] = adminSecret
}
