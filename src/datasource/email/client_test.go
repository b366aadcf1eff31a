package email

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"RentalDashboard/src/config"
	"RentalDashboard/src/datasource/file"
	"RentalDashboard/src/rental"
	"RentalDashboard/src/storage"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

const dayCSV = `dteday,season,holiday,workingday,weathersit,casual,registered,cnt
2011-01-01,1,0,0,2,331,654,985
2011-01-02,1,0,0,2,131,670,801
`

func buildMessage(t *testing.T, subject string, attachments map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer

	var h mail.Header
	h.SetDate(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))
	h.SetAddressList("From", []*mail.Address{{Name: "数据组", Address: "data@example.com"}})
	h.SetSubject(subject)

	mw, err := mail.CreateWriter(&buf, h)
	require.NoError(t, err)

	tw, err := mw.CreateInline()
	require.NoError(t, err)
	var th mail.InlineHeader
	th.Set("Content-Type", "text/plain")
	w, err := tw.CreatePart(th)
	require.NoError(t, err)
	_, err = io.WriteString(w, "见附件")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, tw.Close())

	for name, content := range attachments {
		var ah mail.AttachmentHeader
		ah.Set("Content-Type", "text/csv")
		ah.SetFilename(name)
		w, err := mw.CreateAttachment(ah)
		require.NoError(t, err)
		_, err = io.WriteString(w, content)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}
	require.NoError(t, mw.Close())
	return buf.Bytes()
}

func TestParseMessage(t *testing.T) {
	raw := buildMessage(t, "bike-sharing 日报", map[string]string{"day.csv": dayCSV})

	email, err := ParseMessage(bytes.NewReader(raw), 42)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), email.UID)
	assert.Equal(t, "bike-sharing 日报", email.Subject)
	assert.Contains(t, email.From, "data@example.com")
	assert.True(t, email.Date.Equal(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)))
	require.Len(t, email.Attachments, 1)
	assert.Equal(t, "day.csv", email.Attachments[0].Filename)
	assert.Equal(t, dayCSV, string(email.Attachments[0].Content))
}

func TestDecodeHeaderGBK(t *testing.T) {
	encoded, err := simplifiedchinese.GBK.NewEncoder().String("日报")
	require.NoError(t, err)
	header := "=?GBK?B?" + base64.StdEncoding.EncodeToString([]byte(encoded)) + "?="

	assert.Equal(t, "日报", decodeHeader(header))
	assert.Equal(t, "plain", decodeHeader("plain"))
}

func TestFilterLatestTargetEmail(t *testing.T) {
	now := time.Now()
	emails := []*Email{
		{UID: 1, Subject: "bike-sharing", Date: now.Add(-time.Hour)},
		{UID: 2, Subject: "other", Date: now},
		{UID: 3, Subject: "bike-sharing 更新", Date: now.Add(-time.Minute)},
	}
	assert.Equal(t, uint32(3), filterLatestTargetEmail(emails, "bike-sharing").UID)
	assert.Nil(t, filterLatestTargetEmail(emails, "missing"))
}

func newHandler(t *testing.T) (*DatasetAttachmentHandler, string) {
	dir := t.TempDir()
	loader := &file.Loader{Columns: config.DefaultDataConfig()}
	return NewDatasetAttachmentHandler("bike-sharing",
		filepath.Join(dir, "hour.csv"), filepath.Join(dir, "day.csv"), loader, nil), dir
}

func TestHandlerSavesDatasetAttachments(t *testing.T) {
	h, dir := newHandler(t)
	email := &Email{UID: 7, Subject: "bike-sharing", Attachments: []*Attachment{
		{Filename: "Day.CSV", Content: []byte(dayCSV)},
		{Filename: "readme.txt", Content: []byte("x")},
		{Filename: "hour.xlsx", Content: []byte("x")},
	}}

	saved, err := h.Handle(email)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "day.csv")}, saved)
	assert.True(t, h.IsProcessed(7))

	data, err := os.ReadFile(filepath.Join(dir, "day.csv"))
	require.NoError(t, err)
	assert.Equal(t, dayCSV, string(data))

	// 同一封邮件不会再处理
	saved, err = h.Handle(email)
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestHandlerRejectsInvalidAttachment(t *testing.T) {
	h, dir := newHandler(t)
	target := filepath.Join(dir, "day.csv")
	require.NoError(t, os.WriteFile(target, []byte(dayCSV), 0644))

	bad := []byte("dteday,season\n2011-01-01,1\n")
	_, err := h.Handle(&Email{UID: 8, Subject: "bike-sharing", Attachments: []*Attachment{{Filename: "day.csv", Content: bad}}})
	require.ErrorIs(t, err, rental.ErrSchemaMismatch)
	assert.False(t, h.IsProcessed(8))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, dayCSV, string(data))
}

func TestHandlerSkipsOtherSubjects(t *testing.T) {
	h, _ := newHandler(t)
	saved, err := h.Handle(&Email{UID: 9, Subject: "周报", Attachments: []*Attachment{{Filename: "day.csv", Content: []byte(dayCSV)}}})
	require.NoError(t, err)
	assert.Empty(t, saved)
}

type fakeMailService struct {
	emails     []*Email
	connectErr error
	closed     bool
}

func (f *fakeMailService) Connect() error                      { return f.connectErr }
func (f *fakeMailService) Disconnect()                         { f.closed = true }
func (f *fakeMailService) FetchUnreadEmails() ([]*Email, error) { return f.emails, nil }

func TestCheckAndProcessEmails(t *testing.T) {
	logger, err := storage.NewLogger(filepath.Join(t.TempDir(), "app.log"))
	require.NoError(t, err)
	defer logger.Close()

	h, dir := newHandler(t)
	svc := &fakeMailService{emails: []*Email{
		{UID: 1, Subject: "bike-sharing", Date: time.Now(), Attachments: []*Attachment{{Filename: "day.csv", Content: []byte(dayCSV)}}},
	}}

	saved, err := CheckAndProcessEmails(svc, h, "bike-sharing", logger)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "day.csv")}, saved)
	assert.True(t, svc.closed)

	svc = &fakeMailService{connectErr: errors.New("refused")}
	_, err = CheckAndProcessEmails(svc, h, "bike-sharing", logger)
	assert.Error(t, err)
}
