package logrus

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/unkn0wn-root/shardcount"
)

func TestErrorKeyAndComponent(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := New(base)

	boom := errors.New("boom")
	l.Error("delayed buffer drain failed", shardcount.Fields{"name": "hits", "err": boom})

	e := hook.LastEntry()
	if e == nil {
		t.Fatal("no entry")
	}
	if e.Level != logrus.ErrorLevel || e.Message != "delayed buffer drain failed" {
		t.Fatalf("unexpected entry %v %q", e.Level, e.Message)
	}
	if e.Data[logrus.ErrorKey] != boom || e.Data["component"] != "shardcount" || e.Data["name"] != "hits" {
		t.Fatalf("unexpected data %v", e.Data)
	}

	l.Debug("no fields", nil)
	if len(hook.AllEntries()) != 2 {
		t.Fatalf("want 2 entries, got %d", len(hook.AllEntries()))
	}
}
