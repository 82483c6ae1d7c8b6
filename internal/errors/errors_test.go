package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestConfigErrors(t *testing.T) {
	notFound := &ErrConfigNotFound{Path: "/tmp/config.yaml"}
	if !strings.Contains(notFound.Error(), "config file not found") {
		t.Fatalf("unexpected error message: %s", notFound.Error())
	}
	if !strings.Contains(notFound.Error(), notFound.Path) {
		t.Fatalf("expected path in error message: %s", notFound.Error())
	}

	base := errors.New("bad yaml")
	parse := &ErrConfigParse{Err: base}
	if !strings.Contains(parse.Error(), "failed to parse YAML") {
		t.Fatalf("unexpected parse message: %s", parse.Error())
	}
	if !errors.Is(parse, base) {
		t.Fatalf("expected unwrap to base error")
	}

	validation := &ErrConfigValidation{Err: base}
	if !strings.Contains(validation.Error(), "config validation failed") {
		t.Fatalf("unexpected validation message: %s", validation.Error())
	}
	if !errors.Is(validation, base) {
		t.Fatalf("expected unwrap to base error")
	}
}

func TestDatabaseErrors(t *testing.T) {
	base := errors.New("db")

	op := &ErrDatabaseOpen{Path: "/tmp/db.sqlite", Err: base}
	if !strings.Contains(op.Error(), "failed to open database") {
		t.Fatalf("unexpected open message: %s", op.Error())
	}
	if !errors.Is(op, base) {
		t.Fatalf("expected unwrap to base error")
	}

	migration := &ErrDatabaseMigration{Version: 2, Err: base}
	if !strings.Contains(migration.Error(), "database migration 2 failed") {
		t.Fatalf("unexpected migration message: %s", migration.Error())
	}
	if !errors.Is(migration, base) {
		t.Fatalf("expected unwrap to base error")
	}

	query := &ErrDatabaseQuery{Operation: "select", Err: base}
	if !strings.Contains(query.Error(), "database query failed") {
		t.Fatalf("unexpected query message: %s", query.Error())
	}
	if !errors.Is(query, base) {
		t.Fatalf("expected unwrap to base error")
	}
}

func TestBankErrors(t *testing.T) {
	unknown := &ErrUnknownBank{Bank: "nbank"}
	if !strings.Contains(unknown.Error(), "unknown bank: nbank") {
		t.Fatalf("unexpected message: %s", unknown.Error())
	}

	token := &ErrTokenUnavailable{Bank: "vbank"}
	if !strings.Contains(token.Error(), "no access token") {
		t.Fatalf("unexpected message: %s", token.Error())
	}

	pending := &ErrConsentPending{Bank: "sbank", RequestID: "r-1"}
	if !strings.Contains(pending.Error(), "awaiting approval") {
		t.Fatalf("unexpected message: %s", pending.Error())
	}
	if !strings.Contains(pending.Error(), "r-1") {
		t.Fatalf("expected request id in message: %s", pending.Error())
	}

	pendingNoID := &ErrConsentPending{Bank: "sbank"}
	if strings.Contains(pendingNoID.Error(), "request") {
		t.Fatalf("unexpected request id in message: %s", pendingNoID.Error())
	}

	rejected := &ErrConsentRejected{Bank: "sbank"}
	if !strings.Contains(rejected.Error(), "rejected") {
		t.Fatalf("unexpected message: %s", rejected.Error())
	}

	upstream := &ErrUpstream{Bank: "vbank", Endpoint: "/accounts", Status: 500, Body: "boom"}
	for _, part := range []string{"vbank", "/accounts", "500", "boom"} {
		if !strings.Contains(upstream.Error(), part) {
			t.Fatalf("expected %q in message: %s", part, upstream.Error())
		}
	}

	noAccounts := &ErrNoAccounts{Bank: "vbank", UserID: "42"}
	if !strings.Contains(noAccounts.Error(), "no accounts") {
		t.Fatalf("unexpected message: %s", noAccounts.Error())
	}
}
