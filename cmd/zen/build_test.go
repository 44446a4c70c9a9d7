// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import "testing"

func TestParseModelRootsSplitsOnEquals(t *testing.T) {
	roots, err := parseModelRoots([]string{"KICAD9_3DMODEL_DIR=/opt/kicad/models", "CUSTOM=/home/me/models"})
	if err != nil {
		t.Fatalf("parseModelRoots: %v", err)
	}
	if roots["KICAD9_3DMODEL_DIR"] != "/opt/kicad/models" || roots["CUSTOM"] != "/home/me/models" {
		t.Errorf("unexpected roots: %+v", roots)
	}
}

func TestParseModelRootsRejectsMissingEquals(t *testing.T) {
	if _, err := parseModelRoots([]string{"no-equals-sign"}); err == nil {
		t.Error("expected an error for a malformed --model-root entry")
	}
}

func TestRevisionForPrependsVPrefixOnce(t *testing.T) {
	if got := revisionFor("1.2.0"); got != "v1.2.0" {
		t.Errorf("got %q", got)
	}
	if got := revisionFor("v1.2.0"); got != "v1.2.0" {
		t.Errorf("got %q", got)
	}
}

func TestRemoteURLPrependsScheme(t *testing.T) {
	if got := remoteURL("github.com/acme/resistors"); got != "https://github.com/acme/resistors" {
		t.Errorf("got %q", got)
	}
}
