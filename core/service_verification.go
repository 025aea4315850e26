package core

import (
	"context"
	"strings"
)

type verificationKind string

const (
	verificationKYC verificationKind = "kyc"
	verificationKYB verificationKind = "kyb"
)

func (k verificationKind) requiredType() CustomerType {
	if k == verificationKYB {
		return CustomerTypeBusiness
	}
	return CustomerTypeIndividual
}

// InitiateKYC starts identity verification for an individual customer.
func (s *Service) InitiateKYC(ctx context.Context, customerID string, req InitiateVerificationRequest) (VerificationSession, error) {
	return s.initiateVerification(ctx, verificationKYC, customerID, req)
}

// InitiateKYB starts business verification for a business customer.
func (s *Service) InitiateKYB(ctx context.Context, customerID string, req InitiateVerificationRequest) (VerificationSession, error) {
	return s.initiateVerification(ctx, verificationKYB, customerID, req)
}

func (s *Service) initiateVerification(
	ctx context.Context,
	kind verificationKind,
	customerID string,
	req InitiateVerificationRequest,
) (session VerificationSession, err error) {
	startedAt := s.now()
	fields := map[string]any{"customer_id": customerID}
	defer func() {
		err = s.mapError(err)
		s.observeOperation(ctx, startedAt, "initiate_"+string(kind), err, fields)
	}()

	customer, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return VerificationSession{}, err
	}
	if customer.Type != kind.requiredType() {
		return VerificationSession{}, InvalidCustomerTypeError(customer.ID, kind.requiredType(), customer.Type)
	}

	providerID := firstNonEmpty(req.PreferredProvider, customer.PrimaryProviderID())
	provider, err := s.selector.Get(providerID)
	if err != nil {
		return VerificationSession{}, err
	}
	fields["provider_id"] = provider.ID()

	customer, providerCustomerID, err := s.ensureBinding(ctx, customer, provider)
	if err != nil {
		return VerificationSession{}, err
	}

	req.CustomerID = customer.ID
	if req.TargetLevel == "" {
		req.TargetLevel = VerificationLevelStandard
	}
	if kind == verificationKYB {
		session, err = provider.InitiateKYB(ctx, providerCustomerID, req)
	} else {
		session, err = provider.InitiateKYC(ctx, providerCustomerID, req)
	}
	if err != nil {
		return VerificationSession{}, providerError(provider.ID(), err)
	}

	now := s.now().UTC()
	_, err = s.customers.Update(ctx, customer.ID, func(existing Customer) (Customer, error) {
		next := existing.Clone()
		next.Verification.Status = VerificationStatusPending
		next.Verification.TargetLevel = req.TargetLevel
		if next.Verification.SessionIDs == nil {
			next.Verification.SessionIDs = map[string]string{}
		}
		if strings.TrimSpace(session.SessionID) != "" {
			next.Verification.SessionIDs[provider.ID()] = session.SessionID
		}
		if session.ExpiresAt != nil {
			next.Verification.ExpiresAt = cloneTime(session.ExpiresAt)
		}
		next.Verification.RejectionReason = ""
		next.UpdatedAt = now
		return next, nil
	})
	if err != nil {
		return VerificationSession{}, err
	}
	if session.Status == "" {
		session.Status = VerificationStatusPending
	}
	return session, nil
}

// GetKYCStatus refreshes the verification state of an individual customer
// from its primary provider.
func (s *Service) GetKYCStatus(ctx context.Context, customerID string) (VerificationInfo, error) {
	return s.refreshVerification(ctx, verificationKYC, customerID)
}

func (s *Service) GetKYBStatus(ctx context.Context, customerID string) (VerificationInfo, error) {
	return s.refreshVerification(ctx, verificationKYB, customerID)
}

func (s *Service) refreshVerification(ctx context.Context, kind verificationKind, customerID string) (info VerificationInfo, err error) {
	startedAt := s.now()
	fields := map[string]any{"customer_id": customerID}
	defer func() {
		err = s.mapError(err)
		if info.Status != "" {
			fields["verification_status"] = string(info.Status)
		}
		s.observeOperation(ctx, startedAt, "get_"+string(kind)+"_status", err, fields)
	}()

	customer, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return VerificationInfo{}, err
	}
	provider, providerCustomerID, err := s.primaryBinding(customer)
	if err != nil {
		return VerificationInfo{}, err
	}
	fields["provider_id"] = provider.ID()

	result, err := provider.GetVerificationStatus(ctx, providerCustomerID)
	if err != nil {
		return VerificationInfo{}, providerError(provider.ID(), err)
	}

	updated, err := s.applyVerificationResult(ctx, customer.ID, result)
	if err != nil {
		return VerificationInfo{}, err
	}
	return updated.Verification, nil
}

func (s *Service) applyVerificationResult(ctx context.Context, customerID string, result VerificationStatusResult) (Customer, error) {
	now := s.now().UTC()
	return s.customers.Update(ctx, customerID, func(existing Customer) (Customer, error) {
		next := existing.Clone()
		next.Verification = mergeVerification(next.Verification, result)
		if next.Verification.Status == VerificationStatusApproved && promotable(next.Status) {
			next.Status = CustomerStatusActive
		}
		next.UpdatedAt = now
		return next, nil
	})
}

// promotable reports whether an approved verification may activate a
// customer. Blocked and closed customers stay where an operator put them.
func promotable(status CustomerStatus) bool {
	return status != CustomerStatusBlocked && status != CustomerStatusClosed
}

// mergeVerification folds a provider verification result into the canonical
// info. Empty or nil values in result never erase known values.
func mergeVerification(current VerificationInfo, result VerificationStatusResult) VerificationInfo {
	next := current.Clone()
	if result.Status != "" {
		next.Status = result.Status
	}
	if result.Level != "" {
		next.AchievedLevel = result.Level
	}
	if strings.TrimSpace(result.RejectionReason) != "" {
		next.RejectionReason = result.RejectionReason
	}
	if result.SubmittedAt != nil {
		next.SubmittedAt = cloneTime(result.SubmittedAt)
	}
	if result.CompletedAt != nil && next.CompletedAt == nil {
		next.CompletedAt = cloneTime(result.CompletedAt)
	}
	if result.ExpiresAt != nil {
		next.ExpiresAt = cloneTime(result.ExpiresAt)
	}
	for _, document := range result.Documents {
		next.Documents = upsertDocument(next.Documents, document)
	}
	return next
}

func upsertDocument(documents []VerificationDocument, document VerificationDocument) []VerificationDocument {
	if strings.TrimSpace(document.ID) == "" {
		return append(documents, document)
	}
	for idx := range documents {
		if documents[idx].ID == document.ID {
			documents[idx] = document
			return documents
		}
	}
	return append(documents, document)
}

func (s *Service) UploadDocument(ctx context.Context, customerID string, req UploadDocumentRequest) (document VerificationDocument, err error) {
	startedAt := s.now()
	fields := map[string]any{"customer_id": customerID, "document_type": string(req.Type)}
	defer func() {
		err = s.mapError(err)
		s.observeOperation(ctx, startedAt, "upload_document", err, fields)
	}()

	if req.Type == "" {
		return VerificationDocument{}, ValidationError("type", "document type is required")
	}
	if len(req.Content) == 0 {
		return VerificationDocument{}, ValidationError("content", "document content is required")
	}

	customer, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return VerificationDocument{}, err
	}
	provider, providerCustomerID, err := s.primaryBinding(customer)
	if err != nil {
		return VerificationDocument{}, err
	}
	fields["provider_id"] = provider.ID()

	req.CustomerID = customer.ID
	document, err = provider.UploadDocument(ctx, providerCustomerID, req)
	if err != nil {
		return VerificationDocument{}, providerError(provider.ID(), err)
	}
	if document.Type == "" {
		document.Type = req.Type
	}
	if document.Status == "" {
		document.Status = DocumentStatusUploaded
	}
	if document.FileName == "" {
		document.FileName = req.FileName
	}
	if document.UploadedAt.IsZero() {
		document.UploadedAt = s.now().UTC()
	}

	now := s.now().UTC()
	_, err = s.customers.Update(ctx, customer.ID, func(existing Customer) (Customer, error) {
		next := existing.Clone()
		next.Verification.Documents = upsertDocument(next.Verification.Documents, document)
		next.UpdatedAt = now
		return next, nil
	})
	if err != nil {
		return VerificationDocument{}, err
	}
	return document, nil
}

// ListDocuments returns the provider's current document list and syncs it
// into the canonical record.
func (s *Service) ListDocuments(ctx context.Context, customerID string) (documents []VerificationDocument, err error) {
	startedAt := s.now()
	fields := map[string]any{"customer_id": customerID}
	defer func() {
		err = s.mapError(err)
		s.observeOperation(ctx, startedAt, "list_documents", err, fields)
	}()

	customer, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	provider, providerCustomerID, err := s.primaryBinding(customer)
	if err != nil {
		return nil, err
	}
	fields["provider_id"] = provider.ID()

	documents, err = provider.ListDocuments(ctx, providerCustomerID)
	if err != nil {
		return nil, providerError(provider.ID(), err)
	}
	if len(documents) == 0 {
		return customer.Verification.Documents, nil
	}
	updated, err := s.applyVerificationResult(ctx, customer.ID, VerificationStatusResult{Documents: documents})
	if err != nil {
		return nil, err
	}
	return updated.Verification.Documents, nil
}

// SubmitVerification hands the collected verification data to the provider
// for review. The customer must have accepted the declaration.
func (s *Service) SubmitVerification(ctx context.Context, customerID string, req SubmitVerificationRequest) (info VerificationInfo, err error) {
	startedAt := s.now()
	fields := map[string]any{"customer_id": customerID}
	defer func() {
		err = s.mapError(err)
		s.observeOperation(ctx, startedAt, "submit_verification", err, fields)
	}()

	if !req.DeclarationAccepted {
		return VerificationInfo{}, DeclarationNotAcceptedError(customerID)
	}

	customer, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return VerificationInfo{}, err
	}
	provider, providerCustomerID, err := s.primaryBinding(customer)
	if err != nil {
		return VerificationInfo{}, err
	}
	fields["provider_id"] = provider.ID()

	req.CustomerID = customer.ID
	result, err := provider.SubmitVerification(ctx, providerCustomerID, req)
	if err != nil {
		return VerificationInfo{}, providerError(provider.ID(), err)
	}
	if result.Status == "" {
		result.Status = VerificationStatusInReview
	}
	if result.SubmittedAt == nil {
		result.SubmittedAt = timePtr(s.now())
	}
	updated, err := s.applyVerificationResult(ctx, customer.ID, result)
	if err != nil {
		return VerificationInfo{}, err
	}
	return updated.Verification, nil
}
