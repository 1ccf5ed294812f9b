package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aradsms/golang_services/internal/core_domain"
	"github.com/aradsms/golang_services/internal/dispatch_service/domain"
	"github.com/aradsms/golang_services/internal/dispatch_service/provider"
	"github.com/aradsms/golang_services/internal/dispatch_service/template"
)

// Dispatcher runs one job: resolve the recipient, render the step, then send
// through every eligible channel of the subscriber one candidate at a time.
type Dispatcher struct {
	resolver  *RecipientResolver
	renderer  template.Renderer
	specs     domain.ChannelSpecs
	selector  *IntegrationSelector
	providers *provider.Registry
	messages  domain.MessageRepository
	audit     *AuditRecorder
	retention RetentionPolicy
	logger    *slog.Logger
}

func NewDispatcher(
	resolver *RecipientResolver,
	renderer template.Renderer,
	specs domain.ChannelSpecs,
	selector *IntegrationSelector,
	providers *provider.Registry,
	messages domain.MessageRepository,
	audit *AuditRecorder,
	retention RetentionPolicy,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		resolver:  resolver,
		renderer:  renderer,
		specs:     specs,
		selector:  selector,
		providers: providers,
		messages:  messages,
		audit:     audit,
		retention: retention,
		logger:    logger.With("component", "dispatcher"),
	}
}

// Dispatch processes job. Only job-fatal problems are returned: an unknown
// recipient, a template that does not render, cancellation before all
// candidates ran, or a failed success-path audit write. Per-channel failures
// are reported through the audit trail alone.
func (d *Dispatcher) Dispatch(ctx context.Context, job *core_domain.Job) error {
	start := time.Now()
	defer func() {
		jobDurationHist.WithLabelValues(string(job.ChannelType)).Observe(time.Since(start).Seconds())
	}()
	log := d.logger.With("job_id", job.ID, "transaction_id", job.TransactionID)

	rec, err := d.resolver.Resolve(ctx, job)
	if err != nil {
		d.audit.RecordFailure(ctx, newDetail(job, core_domain.DetailRecipientNotFound, core_domain.SourceInternal, core_domain.DetailStatusFailed,
			withRaw(rawJSON(map[string]string{"subscriber_id": job.SubscriberID, "error": err.Error()}, ""))))
		log.ErrorContext(ctx, "Recipient could not be resolved", "subscriber_id", job.SubscriberID, "error", err)
		return err
	}
	if rec.TenantMissing {
		d.audit.RecordFailure(ctx, newDetail(job, core_domain.DetailTenantNotFound, core_domain.SourcePayload, core_domain.DetailStatusWarning,
			withRaw(rawJSON(map[string]string{"tenant": job.Tenant.Identifier}, ""))))
	}

	title, content, err := template.RenderStep(d.renderer, job.Step.Title, job.Step.Content, BuildRenderContext(job, rec))
	if err != nil {
		d.audit.RecordFailure(ctx, newDetail(job, core_domain.DetailTemplateError, core_domain.SourceInternal, core_domain.DetailStatusFailed,
			withRaw(rawJSON(map[string]string{"step_id": job.StepID, "error": err.Error()}, ""))))
		log.ErrorContext(ctx, "Step template failed to render", "step_id", job.StepID, "error", err)
		return fmt.Errorf("rendering step of job %s: %w", job.ID, err)
	}

	spec, ok := d.specs[job.ChannelType]
	if !ok {
		d.noActiveChannel(ctx, job, fmt.Sprintf("channel type %q is not supported", job.ChannelType))
		return nil
	}
	candidates := EnumerateCandidates(rec.Subscriber.Channels, spec)
	if len(candidates) == 0 {
		d.noActiveChannel(ctx, job, fmt.Sprintf("subscriber has no %s channel credentials", job.ChannelType))
		return nil
	}

	errCount := 0
	for i, c := range candidates {
		if ctx.Err() != nil {
			skipped := len(candidates) - i
			d.audit.RecordFailure(ctx, newDetail(job, core_domain.DetailNotificationError, core_domain.SourceInternal, core_domain.DetailStatusFailed,
				withRaw(rawJSON(map[string]any{"failed": errCount, "skipped": skipped, "error": ctx.Err().Error()}, ""))))
			log.ErrorContext(ctx, "Dispatch cancelled before all channels were processed", "failed", errCount, "skipped", skipped)
			return fmt.Errorf("dispatch of job %s interrupted: %w", job.ID, ctx.Err())
		}

		failed, err := d.dispatchCandidate(ctx, log, job, rec, c, title, content)
		if err != nil {
			return err
		}
		if failed {
			errCount++
		}
	}

	if errCount > 0 {
		d.audit.RecordFailure(ctx, newDetail(job, core_domain.DetailNotificationError, core_domain.SourceInternal, core_domain.DetailStatusFailed,
			withRaw(rawJSON(map[string]int{"failed": errCount, "candidates": len(candidates)}, ""))))
		log.ErrorContext(ctx, "Dispatch completed with channel errors", "failed", errCount, "candidates", len(candidates))
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("dispatch of job %s interrupted: %w", job.ID, err)
	}
	return nil
}

func (d *Dispatcher) noActiveChannel(ctx context.Context, job *core_domain.Job, reason string) {
	d.audit.RecordFailure(ctx, newDetail(job, core_domain.DetailNoActiveChannel, core_domain.SourceInternal, core_domain.DetailStatusFailed,
		withRaw(rawJSON(map[string]string{"reason": reason}, ""))))
	d.audit.RecordFailure(ctx, newDetail(job, core_domain.DetailNotificationError, core_domain.SourceInternal, core_domain.DetailStatusFailed,
		withRaw(rawJSON(map[string]string{"reason": reason}, ""))))
	d.logger.WarnContext(ctx, "No active channel for job", "job_id", job.ID, "reason", reason)
}

// dispatchCandidate returns failed=true for a channel-isolated failure and a
// non-nil error only when a success-path audit write failed.
func (d *Dispatcher) dispatchCandidate(
	ctx context.Context,
	log *slog.Logger,
	job *core_domain.Job,
	rec *Recipient,
	c Candidate,
	title, content string,
) (failed bool, err error) {
	providerID := c.Credential.ProviderID
	fail := func(code core_domain.DetailCode, source core_domain.DetailSource, raw any, opts ...detailOpt) (bool, error) {
		opts = append([]detailOpt{withProvider(providerID), withRaw(rawJSON(raw, ""))}, opts...)
		d.audit.RecordFailure(ctx, newDetail(job, code, source, core_domain.DetailStatusFailed, opts...))
		candidateOutcomesCounter.WithLabelValues(providerID.String(), string(code)).Inc()
		return true, nil
	}

	// Target validation and integration lookup have no ordering dependency.
	var (
		hasTargets  bool
		integration *core_domain.Integration
		lookupErr   error
		g           errgroup.Group
	)
	g.Go(func() error {
		hasTargets = len(c.Targets) > 0
		return nil
	})
	g.Go(func() error {
		var identifier string
		if c.Credential.IntegrationIdentifier != nil {
			identifier = *c.Credential.IntegrationIdentifier
		}
		integration, lookupErr = d.selector.Select(ctx, IntegrationQuery{
			OrganizationID: job.OrganizationID,
			EnvironmentID:  job.EnvironmentID,
			ChannelType:    job.ChannelType,
			ProviderID:     providerID,
			Identifier:     identifier,
			Tenant:         rec.Tenant,
		})
		return nil
	})
	_ = g.Wait()

	if !hasTargets {
		log.WarnContext(ctx, "Channel has no target identifiers", "provider_id", providerID)
		return fail(core_domain.DetailMissingTargetIdentifier, core_domain.SourceCredentials,
			map[string]string{"provider_id": providerID.String(), "reason": "subscriber channel has no target identifiers"})
	}
	if lookupErr != nil {
		log.ErrorContext(ctx, "Integration lookup failed", "provider_id", providerID, "error", lookupErr)
		return fail(core_domain.DetailNoActiveIntegration, core_domain.SourceInternal,
			map[string]string{"provider_id": providerID.String(), "reason": lookupErr.Error()})
	}
	if integration == nil {
		log.WarnContext(ctx, "No active integration for provider", "provider_id", providerID)
		return fail(core_domain.DetailNoActiveIntegration, core_domain.SourceInternal,
			map[string]string{"provider_id": providerID.String(), "reason": "no active integration matches"})
	}
	adapter, ok := d.providers.Get(providerID)
	if !ok {
		log.ErrorContext(ctx, "No adapter registered for provider", "provider_id", providerID, "integration_id", integration.ID)
		return fail(core_domain.DetailNoActiveIntegration, core_domain.SourceInternal,
			map[string]string{"provider_id": providerID.String(), "integration_id": integration.ID, "reason": "no adapter registered for provider"})
	}

	if err := d.audit.Record(ctx, newDetail(job, core_domain.DetailSelectedIntegration, core_domain.SourceInternal, core_domain.DetailStatusPending,
		withProvider(providerID),
		withRaw(rawJSON(map[string]any{
			"integration_id": integration.ID,
			"identifier":     integration.Identifier,
			"provider_id":    integration.ProviderID,
			"primary":        integration.Primary,
			"conditional":    integration.IsConditional(),
		}, "")))); err != nil {
		return false, err
	}

	targets := job.OverrideTargets(providerID)
	if targets == nil {
		targets = c.Targets
	}
	storeContent := d.retention.StoreContent(job.EnvironmentID)

	msg := &core_domain.Message{
		JobID:          job.ID,
		NotificationID: job.NotificationID,
		TemplateID:     job.TemplateID,
		TransactionID:  job.TransactionID,
		OrganizationID: job.OrganizationID,
		EnvironmentID:  job.EnvironmentID,
		SubscriberID:   rec.Subscriber.ID,
		ChannelType:    job.ChannelType,
		ProviderID:     providerID,
		IntegrationID:  integration.ID,
		Title:          title,
		Targets:        targets,
		Payload:        job.Payload,
		Overrides:      job.Overrides,
		Status:         core_domain.MessageStatusPending,
	}
	if storeContent {
		msg.Content = &content
	}
	created, err := d.messages.Create(ctx, msg)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create message", "provider_id", providerID, "error", err)
		return fail(core_domain.DetailMessageCreationFailed, core_domain.SourceInternal,
			map[string]string{"provider_id": providerID.String(), "error": err.Error()})
	}
	log = log.With("message_id", created.ID, "provider_id", providerID)

	var snapshot string
	if storeContent {
		snapshot = rawJSON(map[string]any{"title": title, "content": content, "targets": targets}, "")
	}
	if err := d.audit.Record(ctx, newDetail(job, core_domain.DetailMessageCreated, core_domain.SourceInternal, core_domain.DetailStatusPending,
		withProvider(providerID), withMessage(created.ID), withRaw(snapshot))); err != nil {
		errText := err.Error()
		if uerr := d.messages.UpdateStatus(context.WithoutCancel(ctx), created.ID, core_domain.MessageStatusFailed, nil, &errText); uerr != nil {
			log.ErrorContext(ctx, "Failed to mark message failed", "error", uerr)
		}
		return false, err
	}

	var overrides core_domain.ProviderOverrides
	if job.Overrides != nil {
		overrides = job.Overrides[providerID]
	}
	res, sendErr := adapter.Send(ctx, provider.SendRequest{
		MessageID:   created.ID,
		Targets:     targets,
		Title:       title,
		Content:     content,
		Payload:     job.Payload,
		Overrides:   overrides,
		Subscriber:  rec.Subscriber,
		Step:        job.Step,
		Credentials: integration.Credentials,
	})

	// The message now exists; its terminal event is written even if ctx was cancelled.
	termCtx := context.WithoutCancel(ctx)
	if sendErr == nil && res == nil {
		sendErr = errors.New("provider returned no result")
	}
	if sendErr != nil {
		logProviderError(ctx, log, sendErr)
		d.audit.RecordFailure(termCtx, newDetail(job, core_domain.DetailProviderError, core_domain.SourceProvider, core_domain.DetailStatusFailed,
			withProvider(providerID), withMessage(created.ID), withRaw(providerErrorRaw(sendErr))))
		candidateOutcomesCounter.WithLabelValues(providerID.String(), string(core_domain.DetailProviderError)).Inc()
		errText := sendErr.Error()
		if uerr := d.messages.UpdateStatus(termCtx, created.ID, core_domain.MessageStatusFailed, nil, &errText); uerr != nil {
			log.ErrorContext(ctx, "Failed to update message status", "status", core_domain.MessageStatusFailed, "error", uerr)
		}
		return true, nil
	}

	if err := d.audit.Record(termCtx, newDetail(job, core_domain.DetailMessageSent, core_domain.SourceProvider, core_domain.DetailStatusSuccess,
		withProvider(providerID), withMessage(created.ID), withRaw(rawJSON(res, "")))); err != nil {
		return false, err
	}
	candidateOutcomesCounter.WithLabelValues(providerID.String(), string(core_domain.DetailMessageSent)).Inc()
	providerMessageID := res.ID
	if uerr := d.messages.UpdateStatus(termCtx, created.ID, core_domain.MessageStatusSuccess, &providerMessageID, nil); uerr != nil {
		log.ErrorContext(ctx, "Failed to update message status", "status", core_domain.MessageStatusSuccess, "error", uerr)
	}
	log.InfoContext(ctx, "Message sent", "provider_message_id", res.ID, "targets", len(targets))
	return false, nil
}

func logProviderError(ctx context.Context, log *slog.Logger, err error) {
	var pe *provider.ProviderError
	if errors.As(err, &pe) {
		log.ErrorContext(ctx, "Provider rejected message",
			"error", err, "status_code", pe.StatusCode, "provider_code", pe.Code)
		return
	}
	log.ErrorContext(ctx, "Provider send failed", "error", err)
}

// providerErrorRaw serializes a send failure. Provider errors keep their
// structured fields; anything else falls back to its message.
func providerErrorRaw(err error) string {
	var pe *provider.ProviderError
	if errors.As(err, &pe) {
		fields := toMap(pe)
		if fields == nil {
			fields = map[string]any{}
		}
		fields["message"] = err.Error()
		return rawJSON(fields, err.Error())
	}
	return rawJSON(err, err.Error())
}
