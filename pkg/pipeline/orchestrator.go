package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/shouni/go-post-kit/pkg/domain"
	"github.com/shouni/go-post-kit/pkg/runner"
)

// IdeaGenerator はアイデア生成ステージの契約です。runner.IdeaRunner が満たします。
type IdeaGenerator interface {
	Run(ctx context.Context, brief domain.Brief, reference string) (domain.Ideas, string, error)
}

// PostDrafter は本文生成ステージの契約です。runner.DraftRunner が満たします。
type PostDrafter interface {
	Run(ctx context.Context, brief domain.Brief, idea domain.Idea, reference string) (*domain.Post, string, error)
}

// Illustrator は挿絵生成ステージの契約です。runner.IllustrationRunner が満たします。
type Illustrator interface {
	Run(ctx context.Context, brief domain.Brief, idea domain.Idea, post *domain.Post) (*domain.Illustration, error)
}

// BriefChecker はブリーフ審査の契約です。runner.BriefCheckRunner が満たします。
type BriefChecker interface {
	Run(ctx context.Context, brief domain.Brief) runner.Verdict
}

// sessionEntry はレジストリに載るセッション1件分です。
// mu はステージ実行を直列化し、stateMu は状態フィールドだけを守ります。
// TTL失効のコールバックはステージ実行中でも stateMu 経由で中断マークを打てるのだ。
type sessionEntry struct {
	mu      sync.Mutex
	stateMu sync.Mutex
	session *domain.Session
}

func (e *sessionEntry) stage() domain.Stage {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.session.Stage
}

func (e *sessionEntry) transition(to domain.Stage) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	e.session.Stage = to
}

func (e *sessionEntry) abort(reason error) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	if e.session.Stage.Terminal() {
		return
	}
	e.session.Stage = domain.StageAborted
	e.session.AbortReason = reason
}

// Orchestrator はセッションの状態機械を管理し、各ステージの実行を取り仕切ります。
// 1つのセッション内のステージは直列、別セッション同士は完全に独立です。
type Orchestrator struct {
	ideas      IdeaGenerator
	drafter    PostDrafter
	illust     Illustrator
	checker    BriefChecker // nil なら審査なし
	registry   *cache.Cache
	sessionTTL time.Duration
	logger     *slog.Logger
}

// NewOrchestrator はセッションレジストリを初期化して Orchestrator を生成します。
// TTL を過ぎたセッションは自動で失効し、未完了なら中断扱いになるのだ。
func NewOrchestrator(ideas IdeaGenerator, drafter PostDrafter, illust Illustrator, checker BriefChecker, sessionTTL time.Duration, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if sessionTTL <= 0 {
		sessionTTL = 30 * time.Minute
	}

	registry := cache.New(sessionTTL, sessionTTL/2)
	o := &Orchestrator{
		ideas:      ideas,
		drafter:    drafter,
		illust:     illust,
		checker:    checker,
		registry:   registry,
		sessionTTL: sessionTTL,
		logger:     logger,
	}

	registry.OnEvicted(func(id string, v interface{}) {
		entry, ok := v.(*sessionEntry)
		if !ok {
			return
		}
		entry.abort(&domain.UsageError{Reason: "セッションの有効期限が切れました"})
		logger.Info("セッションが失効しました", "session_id", id)
	})

	return o
}

// StartSession はブリーフを検証してセッションを作り、アイデア生成まで進めます。
// 入力不正および審査で弾かれた場合はセッションを作らずに UsageError を返すのだ。
func (o *Orchestrator) StartSession(ctx context.Context, brief domain.Brief, reference string) (*domain.Session, error) {
	if err := brief.Validate(); err != nil {
		return nil, err
	}

	if o.checker != nil {
		if verdict := o.checker.Run(ctx, brief); !verdict.Relevant {
			return nil, &domain.UsageError{Reason: fmt.Sprintf("このブリーフでは生成できません: %s", verdict.Reason)}
		}
	}

	entry := &sessionEntry{session: domain.NewSession(brief, reference)}
	o.registry.Set(entry.session.ID, entry, cache.DefaultExpiration)

	o.logger.Info("セッションを開始します", "session_id", entry.session.ID, "brief", brief.String())

	entry.mu.Lock()
	defer entry.mu.Unlock()

	ideas, modelUsed, err := o.ideas.Run(ctx, entry.session.Brief, reference)
	if err != nil {
		entry.abort(err)
		o.logger.Error("アイデア生成に失敗したためセッションを中断します", "session_id", entry.session.ID, "error", err)
		return nil, err
	}

	entry.stateMu.Lock()
	defer entry.stateMu.Unlock()
	if entry.session.Stage == domain.StageAborted {
		// 実行中にTTL失効した。結果は捨てるのだ
		return nil, entry.session.AbortReason
	}
	entry.session.Ideas = ideas
	entry.session.Stage = domain.StageIdeasReady

	o.logger.Info("アイデアが揃いました", "session_id", entry.session.ID, "model", modelUsed)
	return o.snapshotLocked(entry.session), nil
}

// SelectIdea は利用者の選択を受けて本文生成ステージを実行します。
// 範囲外のインデックスや不正な状態では UsageError を返し、状態は一切変えません。
func (o *Orchestrator) SelectIdea(ctx context.Context, sessionID string, index int) (*domain.Session, error) {
	entry, err := o.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	if stage := entry.stage(); stage != domain.StageIdeasReady {
		return nil, &domain.UsageError{Reason: fmt.Sprintf("アイデア選択ができる状態ではありません (現在: %s)", stage)}
	}
	if index < 0 || index >= len(entry.session.Ideas) {
		return nil, &domain.UsageError{Reason: fmt.Sprintf("アイデア番号が範囲外です: %d (1〜%d で指定してほしいのだ)", index+1, len(entry.session.Ideas))}
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	// 直列化待ちの間に状態が動いていないか確認し直す
	if stage := entry.stage(); stage != domain.StageIdeasReady {
		return nil, &domain.UsageError{Reason: fmt.Sprintf("アイデア選択ができる状態ではありません (現在: %s)", stage)}
	}

	idea := entry.session.Ideas[index]
	o.logger.Info("本文生成を開始します", "session_id", sessionID, "idea", idea.Title)

	post, modelUsed, err := o.drafter.Run(ctx, entry.session.Brief, idea, entry.session.Reference)
	if err != nil {
		entry.abort(err)
		o.logger.Error("本文生成に失敗したためセッションを中断します", "session_id", sessionID, "error", err)
		return nil, err
	}

	entry.stateMu.Lock()
	defer entry.stateMu.Unlock()
	if entry.session.Stage == domain.StageAborted {
		return nil, entry.session.AbortReason
	}
	entry.session.SelectedIndex = index
	entry.session.Post = post
	entry.session.Stage = domain.StagePostReady

	o.logger.Info("本文が完成しました", "session_id", sessionID, "model", modelUsed)
	return o.snapshotLocked(entry.session), nil
}

// Finalize は挿絵の要否を受けてセッションを完了させます。
// 挿絵生成の失敗は完了を妨げず、挿絵なしの Outcome になるのだ。
func (o *Orchestrator) Finalize(ctx context.Context, sessionID string, withIllustration bool) (*Outcome, error) {
	entry, err := o.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	if stage := entry.stage(); stage != domain.StagePostReady {
		return nil, &domain.UsageError{Reason: fmt.Sprintf("完了処理ができる状態ではありません (現在: %s)", stage)}
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if stage := entry.stage(); stage != domain.StagePostReady {
		return nil, &domain.UsageError{Reason: fmt.Sprintf("完了処理ができる状態ではありません (現在: %s)", stage)}
	}

	var illustration *domain.Illustration
	if withIllustration {
		idea := entry.session.SelectedIdea()
		if idea == nil {
			return nil, &domain.UsageError{Reason: "選択済みのアイデアが見つかりません"}
		}
		illustration, err = o.illust.Run(ctx, entry.session.Brief, *idea, entry.session.Post)
		if err != nil {
			// 設定エラーだけはここに届く。セッションごと中断するのだ
			entry.abort(err)
			o.logger.Error("挿絵生成が致命的エラーで失敗したためセッションを中断します", "session_id", sessionID, "error", err)
			return nil, err
		}
		if illustration == nil {
			o.logger.Warn("挿絵なしで完了します", "session_id", sessionID)
		}
	}

	entry.stateMu.Lock()
	defer entry.stateMu.Unlock()
	if entry.session.Stage == domain.StageAborted {
		return nil, entry.session.AbortReason
	}
	entry.session.Illustration = illustration
	entry.session.Stage = domain.StageCompleted

	o.logger.Info("セッションが完了しました", "session_id", sessionID, "with_illustration", illustration != nil)

	idea := entry.session.SelectedIdea()
	outcome := &Outcome{
		SessionID:    sessionID,
		Brief:        entry.session.Brief,
		Post:         entry.session.Post,
		Illustration: illustration,
	}
	if idea != nil {
		outcome.Idea = *idea
	}
	return outcome, nil
}

// Abort は利用者都合でセッションを打ち切ります。終端状態なら何もしません。
func (o *Orchestrator) Abort(sessionID string, reason string) error {
	entry, err := o.lookup(sessionID)
	if err != nil {
		return err
	}
	entry.abort(&domain.UsageError{Reason: reason})
	o.logger.Info("セッションを中断しました", "session_id", sessionID, "reason", reason)
	return nil
}

// Session は現在のセッション状態の複製を返します。モニタリング用なのだ。
func (o *Orchestrator) Session(sessionID string) (*domain.Session, error) {
	entry, err := o.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	entry.stateMu.Lock()
	defer entry.stateMu.Unlock()
	return o.snapshotLocked(entry.session), nil
}

func (o *Orchestrator) lookup(sessionID string) (*sessionEntry, error) {
	v, ok := o.registry.Get(sessionID)
	if !ok {
		return nil, &domain.UsageError{Reason: fmt.Sprintf("セッションが見つかりません: %s", sessionID)}
	}
	entry, ok := v.(*sessionEntry)
	if !ok {
		return nil, fmt.Errorf("レジストリの内容が不正です: %T", v)
	}
	return entry, nil
}

// snapshotLocked は stateMu を保持した状態で呼ぶこと。
func (o *Orchestrator) snapshotLocked(s *domain.Session) *domain.Session {
	dup := *s
	dup.Ideas = append(domain.Ideas(nil), s.Ideas...)
	if s.Post != nil {
		p := *s.Post
		dup.Post = &p
	}
	if s.Illustration != nil {
		i := *s.Illustration
		dup.Illustration = &i
	}
	return &dup
}
