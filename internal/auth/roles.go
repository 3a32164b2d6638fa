package auth

import "botforge/internal/model"

// DeriveRole resolves the effective role for a user. The server-assigned
// role column always wins over the user-editable profile metadata, so a
// user cannot escalate privileges by editing their own profile fields.
// When neither is set the canonical default is editor.
func DeriveRole(serverRole *string, meta map[string]interface{}) model.Role {
	if serverRole != nil && *serverRole != "" {
		return model.Role(*serverRole)
	}
	if meta != nil {
		if r, ok := meta["role"].(string); ok && r != "" {
			return model.Role(r)
		}
	}
	return model.RoleEditor
}
