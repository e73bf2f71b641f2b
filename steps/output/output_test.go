package output_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rasha-hantash/splunk-downloader/steps/classifier"
	"github.com/rasha-hantash/splunk-downloader/steps/downloader"
	"github.com/rasha-hantash/splunk-downloader/steps/output"
	"github.com/rasha-hantash/splunk-downloader/steps/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	linuxTgz = "https://download.splunk.com/products/universalforwarder/releases/9.0.2/linux/splunkforwarder-9.0.2-17e00c557dc1-Linux-x86_64.tgz"
	winMsi   = "https://download.splunk.com/products/universalforwarder/releases/9.0.2/windows/splunkforwarder-9.0.2-17e00c557dc1-x64-release.msi"
)

// recordingDownloader records what it was offered and, via the shared buffer,
// the order in which printing and prompting happened.
type recordingDownloader struct {
	log     *bytes.Buffer
	accept  bool
	failOn  string
	offered []string
}

func (r *recordingDownloader) ConfirmAndDownload(_ context.Context, rawURL string) (bool, error) {
	r.offered = append(r.offered, rawURL)
	r.log.WriteString("prompt " + rawURL + "\n")
	if rawURL == r.failOn {
		return false, errors.New("connection reset")
	}
	return r.accept, nil
}

func results(t *testing.T, links ...string) *types.Run {
	t.Helper()
	run := &types.Run{}
	for _, l := range links {
		rec, err := classifier.Classify(l)
		require.NoError(t, err)
		run.Results = append(run.Results, rec)
	}
	return run
}

func TestPrinter_ListsOnly(t *testing.T) {
	var out bytes.Buffer
	p := output.NewPrinter(results(t, linuxTgz, winMsi), &out, nil, nil)

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, "output", p.Name())
	assert.Equal(t, linuxTgz+"\n"+winMsi+"\n", out.String())
}

func TestPrinter_OffersEachLinkAfterPrintingIt(t *testing.T) {
	var out bytes.Buffer
	dl := &recordingDownloader{log: &out, accept: true}
	p := output.NewPrinter(results(t, linuxTgz, winMsi), &out, dl, nil)

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, []string{linuxTgz, winMsi}, dl.offered)
	assert.Equal(t,
		linuxTgz+"\nprompt "+linuxTgz+"\n"+winMsi+"\nprompt "+winMsi+"\n",
		out.String())
}

func TestPrinter_ContinuesAfterFailedDownload(t *testing.T) {
	var out bytes.Buffer
	dl := &recordingDownloader{log: &out, accept: true, failOn: linuxTgz}
	p := output.NewPrinter(results(t, linuxTgz, winMsi), &out, dl, nil)

	err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, []string{linuxTgz, winMsi}, dl.offered)
}

func TestPrinter_NoResults(t *testing.T) {
	var out bytes.Buffer
	p := output.NewPrinter(&types.Run{Empty: true}, &out, &recordingDownloader{log: &out}, nil)

	require.NoError(t, p.Run(context.Background()))
	assert.Empty(t, out.String())
}

func TestPrinter_StopsWhenCancelled(t *testing.T) {
	var out bytes.Buffer
	dl := downloader.NewPrompter(downloader.Config{DestDir: t.TempDir()},
		strings.NewReader("n\nn\n"), &out, nil)
	p := output.NewPrinter(results(t, linuxTgz, winMsi), &out, dl, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, out.String(), "Would you like to download")
	assert.Empty(t, out.String())
}
