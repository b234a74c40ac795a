package builder

import (
	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/pkg/dispatch"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
	"github.com/shouni/go-storyboard-kit/pkg/session"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持する
// これを各Build関数に渡すことで、依存関係の注入を簡素化します。
type AppContext struct {
	Config        *config.Config          // Configは、環境変数から読み込まれたグローバルな設定です（APIキー、モデル名など）。
	Options       config.GenerateOptions  // Optionsは、コマンドラインから渡された実行時の設定です。
	Reader        remoteio.InputReader    // Readerは、台本やエンティティ定義の読み込みに使用する入力元です。
	Writer        remoteio.OutputWriter   // Writerは、生成された内容を保存するための出力先です。
	Sessions      *session.Manager        // Sessionsは、同時に1つの実行だけを許す実行スロットです。
	httpClient    httpkit.ClientInterface // httpClient は --script-url の取得に使う共通クライアント
	dispatcher    *dispatch.Dispatcher    // dispatcher はAIサービスへの共通ディスパッチャー
	promptBuilder *prompts.Builder
}

// NewAppContext は AppContext の新しいインスタンスを生成する
func NewAppContext(
	cfg *config.Config,
	httpClient httpkit.ClientInterface,
	dispatcher *dispatch.Dispatcher,
	promptBuilder *prompts.Builder,
	reader remoteio.InputReader,
	writer remoteio.OutputWriter,
) AppContext {
	return AppContext{
		Config:        cfg,
		Options:       cfg.Options,
		Reader:        reader,
		Writer:        writer,
		Sessions:      session.NewManager(),
		httpClient:    httpClient,
		dispatcher:    dispatcher,
		promptBuilder: promptBuilder,
	}
}
