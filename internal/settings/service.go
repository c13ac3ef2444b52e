package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, rule := range e.Fields {
		parts = append(parts, field+": "+rule)
	}
	sort.Strings(parts)
	return "settings: invalid " + strings.Join(parts, ", ")
}

// Service reads and writes gateway settings on top of a Repository.
type Service struct {
	Repo      Repository
	GatewayID string
	Logger    zerolog.Logger

	validate *validator.Validate
}

// NewService constructs a Service for the Fincra gateway.
func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{Repo: repo, GatewayID: GatewayID, Logger: logger, validate: newValidator()}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Get returns the stored settings merged over the defaults. Fields missing
// from the stored document keep their default values.
func (s *Service) Get(ctx context.Context) (Settings, error) {
	out := Defaults()
	if s == nil || s.Repo == nil {
		return out, nil
	}
	doc, found, err := s.Repo.Load(ctx, s.gatewayID())
	if err != nil {
		return Settings{}, err
	}
	if !found {
		return out, nil
	}
	if err := json.Unmarshal(doc, &out); err != nil {
		return Settings{}, fmt.Errorf("settings: decode: %w", err)
	}
	return out, nil
}

// Update validates and stores the provided settings. An empty or masked
// secret keeps the value already stored; secrets named in clear are erased.
func (s *Service) Update(ctx context.Context, in Settings, updatedBy string, clear ...string) (Settings, error) {
	if s == nil || s.Repo == nil {
		return Settings{}, errors.New("settings: service not configured")
	}
	current, err := s.Get(ctx)
	if err != nil {
		return Settings{}, err
	}
	next := in.normalised()
	next.SecretKey = keepSecret(next.SecretKey, current.SecretKey)
	next.WebhookSecret = keepSecret(next.WebhookSecret, current.WebhookSecret)
	cleared := make([]string, 0, len(clear))
	for _, name := range clear {
		switch strings.TrimSpace(name) {
		case FieldSecretKey:
			next.SecretKey = ""
		case FieldWebhookSecret:
			next.WebhookSecret = ""
		default:
			return Settings{}, &ValidationError{Fields: map[string]string{"clear_secrets": "oneof"}}
		}
		cleared = append(cleared, strings.TrimSpace(name))
	}

	if err := s.validator().Struct(next); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			return Settings{}, &ValidationError{Fields: fields}
		}
		return Settings{}, err
	}

	doc, err := json.Marshal(next)
	if err != nil {
		return Settings{}, fmt.Errorf("settings: encode: %w", err)
	}
	if err := s.Repo.Save(ctx, s.gatewayID(), doc, updatedBy); err != nil {
		return Settings{}, err
	}
	s.Logger.Info().
		Str("gateway", s.gatewayID()).
		Str("mode", next.Mode).
		Bool("enabled", next.Enabled).
		Str("updated_by", updatedBy).
		Strs("cleared_secrets", cleared).
		Msg("gateway settings updated")
	return next, nil
}

func (s *Service) gatewayID() string {
	if s.GatewayID == "" {
		return GatewayID
	}
	return s.GatewayID
}

func (s *Service) validator() *validator.Validate {
	if s.validate == nil {
		s.validate = newValidator()
	}
	return s.validate
}
