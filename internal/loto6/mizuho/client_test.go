package mizuho

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"loto6-archive/internal/draw"
	"loto6-archive/internal/loto6/parse"
	"loto6-archive/internal/telemetry"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
)

const nameList = "NAME A1022062.CSV\r\nNAME A1022061.CSV\r\n"

const round2062CSV = "A50,A51,A52,A53\r\n" +
	"第2062回ロト６,数字選択式全国自治宝くじ,令和7年12月22日,令和7年12月23日\r\n" +
	"B50,B51,B52,B53,B54,B55,B56,B57,B58\r\n" +
	"本数字,01,09,18,24,35,42,ボーナス数字,08\r\n"

const resultPage = `<html><head><meta charset="Shift_JIS"></head><body>
<table>
	<tr><th>回別</th><td>第２０６２回</td></tr>
	<tr><th>抽せん日</th><td>令和７年１２月２２日</td></tr>
	<tr><th>本数字</th><td>01</td><td>09</td><td>18</td><td>24</td><td>35</td><td>42</td></tr>
	<tr><th>ボーナス数字</th><td>(08)</td></tr>
</table>
<table>
	<tr><th>回別</th><td>第2061回</td></tr>
	<tr><th>抽せん日</th><td>2025年12月18日</td></tr>
	<tr><th>本数字</th><td>03 12 17 24 31 42</td></tr>
	<tr><th>ボーナス数字</th><td>(15)</td></tr>
</table>
</body></html>`

var round2062 = draw.Result{
	Kind:    draw.Kind,
	Round:   2062,
	Date:    "2025-12-22",
	Numbers: []int{1, 9, 18, 24, 35, 42},
	Bonus:   8,
}

func shiftJIS(t *testing.T, text string) []byte {
	t.Helper()
	encoded, err := japanese.ShiftJIS.NewEncoder().String(text)
	require.NoError(t, err)
	return []byte(encoded)
}

func newTestServer(t *testing.T, routes map[string][]byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if r.URL.Path == "/page.html" {
			w.Header().Set("content-type", "text/html; charset=Shift_JIS")
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, server *httptest.Server, source Source) (*Client, *telemetry.Recorder) {
	t.Helper()
	rec := &telemetry.Recorder{}
	client, err := New(Options{
		IndexURL:   server.URL + "/name.txt",
		CSVBaseURL: server.URL + "/csv/",
		PageURL:    server.URL + "/page.html",
		Source:     source,
	}, rec)
	require.NoError(t, err)
	return client, rec
}

func TestFetchLatestCSV(t *testing.T) {
	server := newTestServer(t, map[string][]byte{
		"/name.txt":         []byte(nameList),
		"/csv/A1022062.CSV": shiftJIS(t, round2062CSV),
	})
	client, _ := newTestClient(t, server, SourceCSV)

	round, err := client.LatestRound(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2062, round)

	result, err := client.FetchLatest(context.Background())
	require.NoError(t, err)
	require.Equal(t, round2062, result)
}

func TestFetchRoundUTF8(t *testing.T) {
	server := newTestServer(t, map[string][]byte{
		"/csv/A1022062.CSV": []byte("\ufeff" + round2062CSV),
	})
	client, _ := newTestClient(t, server, SourceCSV)

	result, err := client.FetchRound(context.Background(), 2062)
	require.NoError(t, err)
	require.Equal(t, round2062, result)
}

func TestFetchRoundMismatch(t *testing.T) {
	server := newTestServer(t, map[string][]byte{
		"/csv/A1022063.CSV": shiftJIS(t, round2062CSV),
	})
	client, _ := newTestClient(t, server, SourceCSV)

	_, err := client.FetchRound(context.Background(), 2063)
	require.ErrorIs(t, err, parse.ErrParse)
}

func TestFetchRoundMissing(t *testing.T) {
	server := newTestServer(t, map[string][]byte{})
	client, rec := newTestClient(t, server, SourceCSV)

	_, err := client.FetchRound(context.Background(), 2063)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusNotFound, statusErr.Status)
	require.NotErrorIs(t, err, parse.ErrParse)
	require.Len(t, rec.Find("warning", "mizuho.fetch-round"), 1)

	_, err = client.FetchRound(context.Background(), 0)
	require.ErrorIs(t, err, draw.ErrInvalidResult)
}

func TestFetchRoundOutOfFileNameRange(t *testing.T) {
	server := newTestServer(t, map[string][]byte{})
	client, rec := newTestClient(t, server, SourceCSV)

	_, err := client.FetchRound(context.Background(), parse.MaxRound+1)
	require.ErrorIs(t, err, draw.ErrInvalidResult)
	require.Empty(t, rec.Find("warning", "mizuho.fetch-round"))
}

func TestFetchLatestHTML(t *testing.T) {
	server := newTestServer(t, map[string][]byte{
		"/page.html": shiftJIS(t, resultPage),
	})
	client, _ := newTestClient(t, server, SourceHTML)

	result, err := client.FetchLatest(context.Background())
	require.NoError(t, err)
	require.Equal(t, round2062, result)

	results, err := client.FetchPage(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, 2061, results[1].Round)
}

func TestFetchLatestFailure(t *testing.T) {
	server := newTestServer(t, map[string][]byte{
		"/name.txt": []byte("maintenance"),
	})
	client, rec := newTestClient(t, server, SourceCSV)

	_, err := client.FetchLatest(context.Background())
	require.ErrorIs(t, err, parse.ErrParse)
	require.Len(t, rec.Find("warning", "mizuho.fetch-latest"), 1)
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(Options{Source: "pdf"}, &telemetry.Recorder{})
	require.Error(t, err)

	_, err = New(Options{IndexURL: "not a url"}, &telemetry.Recorder{})
	require.Error(t, err)

	client, err := New(Options{}, &telemetry.Recorder{})
	require.NoError(t, err)
	require.Equal(t, DefaultIndexURL, client.opts.IndexURL)
	require.Equal(t, SourceCSV, client.opts.Source)
}
