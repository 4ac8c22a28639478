// redact маскирует персональные данные перед записью в логи.
package redact

import "strings"

// Email оставляет первые две руны локальной части и домен целиком.
// Адреса без ровно одного '@' маскируются полностью.
func Email(s string) string {
	local, domain, ok := strings.Cut(s, "@")
	if !ok || strings.Contains(domain, "@") {
		return "***"
	}

	runes := []rune(local)
	if len(runes) > 2 {
		return string(runes[:2]) + "***@" + domain
	}

	return "***@" + domain
}

// ObjectURL отбрасывает query-часть URL объекта (подписи, токены доступа).
func ObjectURL(s string) string {
	base, _, _ := strings.Cut(s, "?")

	return base
}

func Token() string    { return "[REDACTED_TOKEN]" }
func Password() string { return "[REDACTED_PASSWORD]" }
