package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoginCmd_Help(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"login", "--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("login --help failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "access token") {
		t.Errorf("expected help to describe the token exchange, got: %s", out)
	}
	if !strings.Contains(out, "--password") {
		t.Errorf("expected help to mention '--password' flag, got: %s", out)
	}
}

func TestLoginCmd_RequiresPhone(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"login"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error without phone argument")
	}
}

func TestLoginCmd_MissingConfig(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"login", "9876543210", "--password", "pw",
		"--config", "/nonexistent/sathi.yaml"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "load config") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "load config")
	}
}

func TestRegisterCmd_RequiresName(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"register", "9876543210"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error without --name")
	}
}

func TestReadPassword_PipedInput(t *testing.T) {
	cmd := newLoginCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetIn(strings.NewReader("secret123\n"))

	got, err := readPassword(cmd, "Password: ")
	if err != nil {
		t.Fatalf("readPassword: %v", err)
	}
	if got != "secret123" {
		t.Errorf("password = %q, want %q", got, "secret123")
	}
	if !strings.Contains(out.String(), "Password: ") {
		t.Errorf("prompt not written: %q", out.String())
	}
}

func TestReadPassword_TrimsCRLF(t *testing.T) {
	cmd := newLoginCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetIn(strings.NewReader("secret123\r\n"))

	got, err := readPassword(cmd, "Password: ")
	if err != nil {
		t.Fatalf("readPassword: %v", err)
	}
	if got != "secret123" {
		t.Errorf("password = %q, want %q", got, "secret123")
	}
}

func TestReadPassword_EmptyInput(t *testing.T) {
	cmd := newLoginCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetIn(strings.NewReader(""))

	if _, err := readPassword(cmd, "Password: "); err == nil {
		t.Fatal("expected error for empty input")
	}
}
