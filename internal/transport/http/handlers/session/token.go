package session

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// SessionToken is the participant identity minted by the scheduling
// frontend. The token is decoded without signature verification: the
// facilitator service is not the token's audience, it only needs the
// embedded identity to address the HR backend, which enforces its own
// authorization on every call.
type SessionToken struct {
	EmployeeID   string
	EmployeeName string
	ManagerID    string
	ManagerName  string
	View         string
}

func decodeSessionToken(raw string) (SessionToken, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return SessionToken{}, fmt.Errorf("decode session token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return SessionToken{}, fmt.Errorf("unexpected claims type")
	}
	decoded := SessionToken{
		EmployeeID:   claimString(claims, "employeeId"),
		EmployeeName: claimString(claims, "employeeName"),
		ManagerID:    claimString(claims, "managerId"),
		ManagerName:  claimString(claims, "managerName"),
		View:         claimString(claims, "view"),
	}
	if decoded.EmployeeID == "" || decoded.EmployeeName == "" {
		return SessionToken{}, fmt.Errorf("token missing employee identity")
	}
	if decoded.ManagerName == "" {
		return SessionToken{}, fmt.Errorf("token missing manager name")
	}
	return decoded, nil
}

func claimString(claims jwt.MapClaims, key string) string {
	value, _ := claims[key].(string)
	return value
}
