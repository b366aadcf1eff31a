package datapush

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"RentalDashboard/src/dashboard"
	"RentalDashboard/src/processor"
	"RentalDashboard/src/rental"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign(t *testing.T) {
	// 钉钉文档中的签名算法，结果只取决于 timestamp 和 secret
	a := sign(1700000000000, "SECabc")
	b := sign(1700000000000, "SECabc")
	c := sign(1700000000001, "SECabc")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 44)
}

func TestSendMarkdownSignsAndRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		assert.Equal(t, "1700000000000", r.URL.Query().Get("timestamp"))
		assert.Equal(t, sign(1700000000000, "SECabc"), r.URL.Query().Get("sign"))
		assert.Equal(t, "tok", r.URL.Query().Get("access_token"))

		body, _ := io.ReadAll(r.Body)
		var payload map[string]interface{}
		assert.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "markdown", payload["msgtype"])

		if n == 1 {
			w.Write([]byte(`{"errcode":310000,"errmsg":"sign not match"}`))
			return
		}
		w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
	}))
	defer srv.Close()

	p := NewDingTalkPusher(srv.URL+"/robot/send?access_token=tok", "SECabc", "en")
	p.Interval = time.Millisecond
	p.now = func() time.Time { return time.UnixMilli(1700000000000) }

	require.NoError(t, p.SendMarkdown(context.Background(), "t", "x"))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSendMarkdownGivesUp(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewDingTalkPusher(srv.URL, "", "en")
	p.Retries = 3
	p.Interval = time.Millisecond

	err := p.SendMarkdown(context.Background(), "t", "x")
	assert.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestMarkdown(t *testing.T) {
	d := time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC)
	page := &dashboard.Page{
		Dataset: dashboard.DatasetHour,
		Range:   processor.DateRange{Start: d, End: d},
		Rows:    1,
		Hourly:  []processor.HourCount{{Hour: 8, Records: 1234}},
		DayTypes: []processor.DayTypeCount{
			{DayType: rental.Weekend, Records: 1234},
		},
	}
	title, text, err := Markdown(page, "en")
	require.NoError(t, err)
	assert.Contains(t, title, "2011-01-01")
	assert.Contains(t, text, "### ")
	assert.Contains(t, text, "1,234")
}
