package query

// Static vocabulary tables. Built once at package load and never mutated;
// the processor only reads them.

// stopWords are particles and filler terms that carry no retrieval signal.
var stopWords = map[string]struct{}{
	// Japanese particles and auxiliaries
	"の": {}, "に": {}, "は": {}, "を": {}, "が": {}, "で": {}, "と": {}, "も": {},
	"から": {}, "まで": {}, "より": {}, "へ": {},
	"について": {}, "において": {}, "という": {}, "として": {}, "による": {}, "により": {},
	"これ": {}, "それ": {}, "あれ": {}, "この": {}, "その": {}, "あの": {}, "どの": {},
	"です": {}, "である": {}, "だ": {}, "ます": {}, "ました": {}, "でした": {},
	"する": {}, "した": {}, "ある": {}, "ない": {}, "いる": {}, "ていう": {},
	"といった": {}, "みたいな": {},
	"お": {}, "ご": {}, "さん": {}, "ちゃん": {}, "くん": {}, "さま": {}, "様": {},
	// English fillers
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "was": {}, "to": {},
	"of": {}, "in": {}, "on": {}, "for": {}, "with": {}, "and": {}, "or": {},
	"do": {}, "does": {}, "can": {}, "it": {},
}

// questionWords are interrogative expressions excluded from keywords.
var questionWords = map[string]struct{}{
	"どうやって": {}, "どのように": {}, "どんな": {}, "なぜ": {}, "いつ": {}, "どこ": {},
	"だれ": {}, "誰": {}, "なんで": {}, "何で": {}, "どうして": {}, "いかに": {},
	"どう": {}, "どれ": {}, "どちら": {}, "なに": {}, "何": {},
	"教えて": {}, "知りたい": {}, "分からない": {}, "わからない": {},
	"方法": {}, "手順": {}, "やり方": {},
	"what": {}, "how": {}, "why": {}, "when": {}, "where": {}, "who": {}, "which": {},
}

// synonyms maps canonical technical terms to their known surface variants,
// including native-script transliterations.
var synonyms = map[string][]string{
	"ubuntu":         {"ubuntu", "ウブントゥ", "ウブンツ"},
	"install":        {"インストール", "install", "installation", "setup", "セットアップ"},
	"python":         {"python", "パイソン", "py"},
	"ros":            {"ros", "robot operating system", "ロボットオペレーティングシステム"},
	"rag":            {"rag", "retrieval augmented generation", "retrieval-augmented generation", "ラグ", "検索拡張生成", "レトリーバル"},
	"ai":             {"ai", "人工知能", "artificial intelligence", "machine learning", "機械学習"},
	"docker":         {"docker", "コンテナ", "container"},
	"raspberry pi":   {"raspberry pi", "ラズパイ", "raspberry", "ラズベリーパイ"},
	"gpu":            {"gpu", "graphics processing unit", "グラフィックス", "cuda"},
	"neural network": {"neural network", "ニューラルネットワーク", "神経回路網", "nn"},
	"deep learning":  {"deep learning", "ディープラーニング", "深層学習"},
	"esa":            {"esa", "エサ", "チームエサ", "team esa", "エササービス"},
	"api":            {"api", "application programming interface", "アプリケーションプログラミングインターフェース", "アプリケーションプログラムインターフェース"},
}

// canonicalOrder fixes iteration order over the synonym table so that
// resolution is deterministic run to run.
var canonicalOrder = []string{
	"ubuntu", "install", "python", "ros", "rag", "ai", "docker",
	"raspberry pi", "gpu", "neural network", "deep learning", "esa", "api",
}

// technicalIndicators mark Japanese compounds worth keeping as keywords.
var technicalIndicators = []string{
	"インストール", "セットアップ", "設定", "構築", "開発",
	"実装", "学習", "訓練", "モデル", "システム", "ツール",
	"ライブラリ", "フレームワーク", "プラットフォーム",
}

// japaneseTechWords is a broader indicator list used when deciding whether an
// unresolved keyword still looks like a technical term.
var japaneseTechWords = []string{
	"インストール", "セットアップ", "環境構築", "設定",
	"システム", "プラットフォーム", "フレームワーク",
	"ライブラリ", "ツール", "アプリ", "ソフトウェア",
	"機械学習", "深層学習", "ニューラルネットワーク",
	"データベース", "サーバー", "クライアント",
}

// actionWords mark install/configure intent in a query.
var actionWords = []string{
	"インストール", "セットアップ", "設定", "構築", "方法",
	"install", "setup", "configure",
}

// priorityRAG and priorityESA are the two privileged domain terms whose
// variants are merged preferentially when building candidate queries.
var (
	priorityRAG = []string{"rag", "retrieval augmented generation", "retrieval-augmented generation", "検索拡張生成"}
	priorityESA = []string{"esa", "エサ", "チームエサ", "team esa"}
)
