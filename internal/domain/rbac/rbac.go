// Пакет rbac — определение роли пользователя портала.
// Роль выводится из групп management-пользователя в API Management:
// членство хотя бы в одной из admin-групп даёт роль admin,
// все остальные пользователи — developer (владельцы своих сервисов).
package rbac

// Роли в порядке возрастания привилегий.
const (
	RoleDeveloper = "developer"
	RoleAdmin     = "admin"
)

// roleWeight — вес роли для сравнения.
// Чем выше вес, тем больше привилегий.
var roleWeight = map[string]int{
	RoleDeveloper: 1,
	RoleAdmin:     2,
}

// MapGroupsToRole определяет роль пользователя на основе его групп
// в API Management. Совпадение с одной из adminGroups даёт admin,
// иначе developer.
func MapGroupsToRole(groups, adminGroups []string) string {
	adminSet := toSet(adminGroups)
	for _, g := range groups {
		if adminSet[g] {
			return RoleAdmin
		}
	}
	return RoleDeveloper
}

// IsAdmin — чистый предикат админ-гейта: true, если группы пользователя
// дают роль admin. Используется и как условие admin bypass при проверке
// подписки, и как жёсткий гейт операций загрузки логотипов.
func IsAdmin(groups, adminGroups []string) bool {
	return MapGroupsToRole(groups, adminGroups) == RoleAdmin
}

// IsValidRole проверяет, является ли строка допустимой ролью.
func IsValidRole(role string) bool {
	_, ok := roleWeight[role]
	return ok
}

// toSet конвертирует срез строк в map для быстрого поиска.
func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, item := range items {
		s[item] = true
	}
	return s
}
