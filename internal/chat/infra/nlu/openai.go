package nlu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/plan-assistant-go/internal/chat/domain"
	"github.com/boddenberg/plan-assistant-go/internal/port"
)

// SourceOpenAI identifica resultados vindos do modelo remoto.
const SourceOpenAI = "openai"

// DefaultModel é usado quando OPENAI_MODEL não é informado.
const DefaultModel = "gpt-4o-mini"

// historyTurns é quantos turnos anteriores vão no prompt.
const historyTurns = 5

var tracer = otel.Tracer("chat/infra/nlu")

// TokenRecorder recebe o consumo de tokens de cada chamada.
type TokenRecorder interface {
	RecordTokens(prompt, completion int)
}

// OpenAIConfig configura o oráculo remoto.
type OpenAIConfig struct {
	APIKey    string
	Model     string
	BaseURL   string // vazio = API pública
	MaxTokens int64
}

// ============================================================
// OpenAI - oráculo remoto via Chat Completions
// ============================================================

// OpenAI classifica mensagens pedindo ao modelo um JSON estruturado.
// Erros são devolvidos crus; quem decide o fallback é o Resilient.
type OpenAI struct {
	client    openai.Client
	model     string
	maxTokens int64
	system    string
	tokens    TokenRecorder
}

// NewOpenAI creates the remote oracle. The SDK's own retries are disabled:
// retry and breaking belong to the Resilient wrapper.
func NewOpenAI(cfg OpenAIConfig, cat port.Catalog, tokens TokenRecorder) *OpenAI {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}
	return &OpenAI{
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
		system:    systemPrompt(cat),
		tokens:    tokens,
	}
}

func systemPrompt(cat port.Catalog) string {
	var b strings.Builder
	b.WriteString("Você é um assistente virtual especializado em pagamentos e planos de assinatura.\n")
	b.WriteString("Seu objetivo é ajudar usuários a:\n")
	b.WriteString("1. Obter informações sobre planos disponíveis\n")
	b.WriteString("2. Processar pagamentos via PIX, boleto ou cartão de crédito\n")
	b.WriteString("3. Verificar histórico de transações\n")
	b.WriteString("4. Resolver dúvidas sobre assinaturas e pagamentos\n\n")
	b.WriteString("Planos:\n")
	for _, p := range cat.All() {
		fmt.Fprintf(&b, "- %s (código %q): %s. %s Benefícios: %s.\n",
			p.Name, p.Code, p.Price, p.Description, strings.Join(p.Benefits, "; "))
	}
	b.WriteString("\nSeja sempre cordial, objetivo e forneça informações precisas.")
	return b.String()
}

const classifyInstructions = `Analise a última mensagem do usuário e responda SOMENTE com um JSON no formato:
{
  "intent": "greeting | plan_info | available_plans | payment | payment_method | payment_method_pix | payment_method_boleto | payment_method_card | cancellation | history | unknown",
  "plan": "basico | premium | vazio",
  "info_type": "price | benefits | description | payment_methods | proceed_payment_pix | proceed_payment_boleto | proceed_payment_card | subscription | cancellation | available_plans | vazio",
  "entities": {"payment_method": "pix | boleto | credit_card"},
  "response": "sua resposta natural ao usuário"
}`

type classifyPayload struct {
	Intent   string            `json:"intent"`
	Intencao string            `json:"intencao"`
	Plan     string            `json:"plan"`
	InfoType string            `json:"info_type"`
	Entities map[string]string `json:"entities"`
	Response string            `json:"response"`
}

// Classify envia os últimos turnos e a mensagem atual ao modelo.
func (o *OpenAI) Classify(ctx context.Context, text string, history []domain.HistoryEntry) (*domain.NLUResult, error) {
	ctx, span := tracer.Start(ctx, "OpenAI.Classify")
	defer span.End()

	messages := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(o.system)}
	for _, h := range lastTurns(history, historyTurns) {
		messages = append(messages, openai.UserMessage(h.UserText))
	}
	messages = append(messages,
		openai.UserMessage(text),
		openai.SystemMessage(classifyInstructions),
	)

	content, err := o.complete(ctx, messages, o.maxTokens)
	if err != nil {
		return nil, err
	}

	res, err := parseClassification(content)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("nlu.intent", string(res.Intent)))
	return res, nil
}

// Generate produz texto livre para intenções não reconhecidas.
func (o *OpenAI) Generate(ctx context.Context, prompt string, sc *domain.SessionContext) (string, error) {
	ctx, span := tracer.Start(ctx, "OpenAI.Generate")
	defer span.End()

	messages := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(o.system)}
	if sc != nil {
		messages = append(messages, openai.SystemMessage(
			fmt.Sprintf("O usuário se chama %s. Chame-o pelo nome.", sc.Name())))
		if sc.CurrentPlan != "" {
			messages = append(messages, openai.SystemMessage("Plano em discussão: "+sc.CurrentPlan+"."))
		}
	}
	messages = append(messages, openai.UserMessage(prompt))

	return o.complete(ctx, messages, 150)
}

func (o *OpenAI) complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, maxTokens int64) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.model),
		Messages:    messages,
		Temperature: openai.Float(0.2),
		MaxTokens:   openai.Int(maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if o.tokens != nil {
		o.tokens.RecordTokens(int(resp.Usage.PromptTokens), int(resp.Usage.CompletionTokens))
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// parseClassification tira cercas ```json e normaliza a intenção.
func parseClassification(content string) (*domain.NLUResult, error) {
	raw := stripFences(content)
	var p classifyPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("openai: invalid classification JSON: %w", err)
	}
	intent := p.Intent
	if intent == "" {
		intent = p.Intencao
	}

	res := &domain.NLUResult{
		Intent:   domain.ParseIntent(intent),
		InfoType: domain.ParseInfoType(p.InfoType),
		Source:   SourceOpenAI,
	}
	if plan := detectPlan(tokenize(p.Plan)); plan != "" {
		res.Plan = plan
	}
	if len(p.Entities) > 0 {
		res.Entities = make(map[string]string, len(p.Entities))
		for k, v := range p.Entities {
			if v != "" {
				res.Entities[k] = v
			}
		}
		if res.Plan == "" {
			res.Plan = detectPlan(tokenize(p.Entities["plano"] + " " + p.Entities["plan"]))
		}
	}
	return res, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "```json"); i >= 0 {
		s = s[i+len("```json"):]
	} else if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func lastTurns(history []domain.HistoryEntry, n int) []domain.HistoryEntry {
	var turns []domain.HistoryEntry
	for _, h := range history {
		if h.Kind == domain.EntryTurn && h.UserText != "" {
			turns = append(turns, h)
		}
	}
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return turns
}
