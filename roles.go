package identity

// roleHierarchy orders the platform roles by authority.
var roleHierarchy = map[RoleKey]int{
	RoleStudent: 0,
	RoleMentor:  1,
	RoleManager: 2,
}

// IsValidRoleKey checks whether the key is one of the predefined roles.
func IsValidRoleKey(key string) bool {
	_, ok := roleHierarchy[key]
	return ok
}

// ParseRoleKey safely parses a string into a RoleKey.
func ParseRoleKey(raw string) (RoleKey, bool) {
	if IsValidRoleKey(raw) {
		return raw, true
	}
	return "", false
}

// RoleAtLeast reports whether role meets the minimum required level.
func RoleAtLeast(role, minRole RoleKey) bool {
	currentLevel, ok := roleHierarchy[role]
	if !ok {
		return false
	}

	minLevel, ok := roleHierarchy[minRole]
	if !ok {
		return false
	}

	return currentLevel >= minLevel
}

// AllRoleKeys returns the predefined roles in hierarchical order.
func AllRoleKeys() []RoleKey {
	return []RoleKey{RoleStudent, RoleMentor, RoleManager}
}
