/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package log

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(&buf, "warning"); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer Init(os.Stderr, "info")

	Debug("debug %d", 1)
	Info("info %d", 2)
	Warning("warn %d", 3)
	Error("error %d", 4)

	out := buf.String()
	if strings.Contains(out, "debug 1") || strings.Contains(out, "info 2") {
		t.Fatalf("messages below warning were written: %q", out)
	}
	if !strings.Contains(out, WarningPrefix+"warn 3") || !strings.Contains(out, ErrorPrefix+"error 4") {
		t.Fatalf("missing messages: %q", out)
	}
	if !strings.Contains(out, LogPrefix) {
		t.Fatalf("missing prefix: %q", out)
	}
}

func TestWrongLevel(t *testing.T) {
	if err := SetLevel("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if _, err := ParseLevel("DEBUG"); err != nil {
		t.Fatalf("levels are case insensitive: %v", err)
	}
}
