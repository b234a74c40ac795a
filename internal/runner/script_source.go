package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/shouni/go-storyboard-kit/internal/config"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"
)

// ErrNoScriptSource は台本の入力元が1つも指定されていない場合のエラーなのだ。
var ErrNoScriptSource = errors.New("台本の入力元（--script-url か --script-file）が指定されていないのだ")

// ScriptSource は、URL・ファイル・標準入力のいずれかから台本テキストを取得するのだ。
type ScriptSource struct {
	reader     remoteio.InputReader    // ローカルやGCSのファイルを読み込むリーダー
	httpClient httpkit.ClientInterface // --script-url の取得に使うHTTPクライアント
}

// NewScriptSource は ScriptSource の新しいインスタンスを生成して返すのだ。
func NewScriptSource(reader remoteio.InputReader, httpClient httpkit.ClientInterface) *ScriptSource {
	return &ScriptSource{reader: reader, httpClient: httpClient}
}

// Read は、オプションの指定に基づいて適切な方法で台本テキストを取得するのだ。
// URLが最優先で、次にファイルパス（"-" なら標準入力）を見るのだ。
func (s *ScriptSource) Read(ctx context.Context, opts config.GenerateOptions) (string, error) {
	if opts.ScriptURL != "" {
		body, err := s.httpClient.FetchBytes(ctx, opts.ScriptURL)
		if err != nil {
			return "", fmt.Errorf("URL '%s' からの台本取得に失敗したのだ: %w", opts.ScriptURL, err)
		}
		return string(body), nil
	}

	if opts.ScriptFile == "" {
		return "", ErrNoScriptSource
	}

	if opts.ScriptFile == "-" {
		body, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("標準入力からの台本読み込みに失敗したのだ: %w", err)
		}
		return string(body), nil
	}

	rc, err := s.reader.Open(ctx, opts.ScriptFile)
	if err != nil {
		return "", fmt.Errorf("台本ファイル '%s' の読み込みに失敗したのだ: %w", opts.ScriptFile, err)
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
