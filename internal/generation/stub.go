package generation

import "context"

// StubVariant selects one of the two fixture sets.
type StubVariant int

const (
	// StubPrimary mirrors what the primary model typically answers.
	StubPrimary StubVariant = iota
	// StubSecondary is the second generator's fixture set.
	StubSecondary
)

// DefaultMermaid is the suggested diagram returned when no model answer is available.
const DefaultMermaid = "flowchart TB\n  A[Client] --> B[Load Balancer]\n  B --> C[API Server]\n  C --> D[Database]\n  C --> E[Cache]"

type fixture struct {
	functional    []string
	nonFunctional []string
	apis          []string
	diagram       []string
	mermaid       string
	estimation    []string
	dataModel     []string
}

var fixtures = map[StubVariant]fixture{
	StubPrimary: {
		functional: []string{
			"User authentication and authorization",
			"Core feature implementation",
			"Data storage and retrieval",
			"API endpoints",
			"Error handling",
		},
		nonFunctional: []string{
			"Scalability to handle 1M+ users",
			"99.9% uptime",
			"Response time < 200ms",
			"Data consistency",
			"Security and encryption",
		},
		apis: []string{
			"POST /shorten – create short URL from long URL",
			"GET /:id – resolve short URL and redirect to long URL",
			"GET /analytics/:id – get click statistics for a short URL",
			"POST /users – register user",
			"GET /users/:id/urls – list short URLs created by user",
		},
		diagram: []string{"Load Balancer", "API Server", "Database", "Cache", "Client"},
		mermaid: DefaultMermaid,
		estimation: []string{
			"DAU / MAU or user scale",
			"Queries per second (QPS)",
			"Storage size",
			"Bandwidth",
			"Read/write ratio",
		},
		dataModel: []string{
			"Users (id, email, createdAt)",
			"ShortUrl (shortCode, longUrl, userId, createdAt)",
			"Clicks (shortCode, timestamp, userAgent)",
			"Index on ShortUrl.shortCode",
			"Index on ShortUrl.userId",
		},
	},
	StubSecondary: {
		functional: []string{
			"User management",
			"Core business logic",
			"Data persistence",
			"RESTful API",
			"Input validation",
		},
		nonFunctional: []string{
			"Horizontal scalability",
			"High availability",
			"Low latency",
			"ACID compliance",
			"End-to-end encryption",
		},
		apis: []string{
			"POST /api/shorten – create and store short link",
			"GET /s/:shortCode – redirect to original URL",
			"GET /api/stats/:shortCode – retrieve analytics",
			"PUT /api/shorten/:id – update or delete short link",
			"GET /api/health – health check endpoint",
		},
		diagram: []string{"Web Server", "Application Server", "Database", "Message Queue", "CDN"},
		mermaid: DefaultMermaid,
		estimation: []string{
			"Daily active users",
			"Requests per second",
			"Data storage requirements",
			"Network bandwidth",
			"Cache hit rate",
		},
		dataModel: []string{
			"Users (id, email, createdAt)",
			"UrlMapping (shortCode, longUrl, userId, createdAt)",
			"Analytics (shortCode, timestamp)",
			"Index on shortCode",
		},
	},
}

// StubSource returns fixed fixture lists regardless of topic. It never fails.
type StubSource struct {
	variant StubVariant
}

// NewStubSource creates a stub source for a fixture variant.
func NewStubSource(variant StubVariant) *StubSource {
	if _, ok := fixtures[variant]; !ok {
		variant = StubPrimary
	}
	return &StubSource{variant: variant}
}

// Name implements Source.
func (s *StubSource) Name() string {
	if s.variant == StubSecondary {
		return "stub-secondary"
	}
	return "stub-primary"
}

func (s *StubSource) fixture() fixture {
	return fixtures[s.variant]
}

// Requirements implements Source.
func (s *StubSource) Requirements(_ context.Context, _ string) (Requirements, error) {
	f := s.fixture()
	return Requirements{
		Functional:    clone(f.functional),
		NonFunctional: clone(f.nonFunctional),
	}, nil
}

// APIs implements Source.
func (s *StubSource) APIs(_ context.Context, _ string) ([]string, error) {
	return clone(s.fixture().apis), nil
}

// DiagramElements implements Source.
func (s *StubSource) DiagramElements(_ context.Context, _ string) (Diagram, error) {
	f := s.fixture()
	return Diagram{Elements: clone(f.diagram), Mermaid: f.mermaid}, nil
}

// EstimationItems implements Source.
func (s *StubSource) EstimationItems(_ context.Context, _ string) ([]string, error) {
	return clone(s.fixture().estimation), nil
}

// DataModelElements implements Source.
func (s *StubSource) DataModelElements(_ context.Context, _ string, _ []string) ([]string, error) {
	return clone(s.fixture().dataModel), nil
}

// clone keeps callers from mutating the shared fixtures.
func clone(items []string) []string {
	out := make([]string, len(items))
	copy(out, items)
	return out
}
