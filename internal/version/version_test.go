package version

import (
	"runtime/debug"
	"testing"
)

func withBuildInfo(t *testing.T, bi *debug.BuildInfo, ok bool) {
	t.Helper()
	prev := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) { return bi, ok }
	t.Cleanup(func() { readBuildInfo = prev })
}

func withVars(t *testing.T, v, c, b string) {
	t.Helper()
	pv, pc, pb := Version, Commit, BuildTime
	Version, Commit, BuildTime = v, c, b
	t.Cleanup(func() { Version, Commit, BuildTime = pv, pc, pb })
}

func TestResolveLdflagsWin(t *testing.T) {
	withVars(t, "v1.2.3", "abc", "2026-01-01")
	withBuildInfo(t, &debug.BuildInfo{
		Main:     debug.Module{Version: "v0.0.1"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "zzz"}},
	}, true)

	info := Resolve()
	if info.Version != "v1.2.3" || info.Commit != "abc" || info.BuildTime != "2026-01-01" {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestResolveFallsBackToBuildInfo(t *testing.T) {
	withVars(t, "", "", "")
	withBuildInfo(t, &debug.BuildInfo{
		Main: debug.Module{Version: "v0.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2026-10-01T00:00:00Z"},
		},
	}, true)

	if got := String(); got != "v0.4.0 (0123456789ab)" {
		t.Fatalf("unexpected version string: %q", got)
	}
}

func TestResolveDevel(t *testing.T) {
	withVars(t, "", "", "")
	withBuildInfo(t, &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, true)

	if got := String(); got != "dev" {
		t.Fatalf("unexpected version string: %q", got)
	}
}

func TestResolveNoBuildInfo(t *testing.T) {
	withVars(t, "", "", "")
	withBuildInfo(t, nil, false)

	if got := Resolve().Version; got != "dev" {
		t.Fatalf("unexpected version: %q", got)
	}
}
