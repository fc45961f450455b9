package utils

import (
	"testing"
)

func TestJwtRoundTrip(t *testing.T) {
	token, err := JwtGenerate(42, "Supervisor")
	if err != nil {
		t.Fatalf("JwtGenerate: %v", err)
	}

	parsed, err := JwtValidate(token)
	if err != nil {
		t.Fatalf("JwtValidate: %v", err)
	}
	if !parsed.Valid {
		t.Fatalf("token should be valid")
	}

	claims, ok := parsed.Claims.(*JwtCustomClaim)
	if !ok {
		t.Fatalf("unexpected claims type %T", parsed.Claims)
	}
	if claims.ID != 42 || claims.Role != "Supervisor" {
		t.Fatalf("claims lost: %+v", claims)
	}
}

func TestJwtValidateRejectsTampering(t *testing.T) {
	token, err := JwtGenerate(1, "Operator")
	if err != nil {
		t.Fatalf("JwtGenerate: %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if parsed, err := JwtValidate(tampered); err == nil && parsed.Valid {
		t.Fatalf("tampered token accepted")
	}
}
