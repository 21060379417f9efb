package api

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MarkoPoloResearchLab/societyhub/internal/ratelimit"
)

const headerForwardedFor = "X-Forwarded-For"

// ClientAddress resolves the requesting client: the first X-Forwarded-For entry,
// otherwise the socket peer address, otherwise "unknown".
func ClientAddress(context *gin.Context) string {
	if forwarded := context.GetHeader(headerForwardedFor); forwarded != "" {
		first := strings.TrimSpace(strings.SplitN(forwarded, ",", 2)[0])
		if first != "" {
			return first
		}
	}
	if remote := strings.TrimSpace(context.RemoteIP()); remote != "" {
		return remote
	}
	return ratelimit.UnknownClientKey
}

// ParseAllowedOrigins splits a comma, semicolon or space separated origin list, dropping duplicates.
func ParseAllowedOrigins(rawAllowedOrigins string) []string {
	trimmedValue := strings.TrimSpace(rawAllowedOrigins)
	if trimmedValue == "" {
		return nil
	}
	normalizedSeparators := strings.NewReplacer(",", " ", ";", " ").Replace(trimmedValue)
	parts := strings.Fields(normalizedSeparators)
	uniqueOrigins := make([]string, 0, len(parts))
	seenOrigins := make(map[string]struct{}, len(parts))
	for _, partValue := range parts {
		lowerPart := strings.ToLower(strings.TrimRight(partValue, "/"))
		if lowerPart == "" {
			continue
		}
		if _, alreadySeen := seenOrigins[lowerPart]; alreadySeen {
			continue
		}
		seenOrigins[lowerPart] = struct{}{}
		uniqueOrigins = append(uniqueOrigins, strings.TrimRight(partValue, "/"))
	}
	if len(uniqueOrigins) == 0 {
		return nil
	}
	return uniqueOrigins
}
