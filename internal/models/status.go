// internal/models/status.go
package models

import "fmt"

// ProductStatus is the lifecycle position of a submitted product.
type ProductStatus string

const (
	ProductStatusPending     ProductStatus = "PENDING"
	ProductStatusUnderReview ProductStatus = "UNDER_REVIEW"
	ProductStatusEvaluated   ProductStatus = "EVALUATED"
	ProductStatusCertified   ProductStatus = "CERTIFIED"
	ProductStatusRejected    ProductStatus = "REJECTED"
)

var AllProductStatuses = []ProductStatus{
	ProductStatusPending,
	ProductStatusUnderReview,
	ProductStatusEvaluated,
	ProductStatusCertified,
	ProductStatusRejected,
}

func ParseProductStatus(s string) (ProductStatus, error) {
	status := ProductStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown product status %q", s)
	}
	return status, nil
}

func (s ProductStatus) Valid() bool {
	switch s {
	case ProductStatusPending, ProductStatusUnderReview, ProductStatusEvaluated,
		ProductStatusCertified, ProductStatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further admin transition leaves s except reset.
func (s ProductStatus) Terminal() bool {
	switch s {
	case ProductStatusCertified, ProductStatusRejected:
		return true
	}
	return false
}

// CanSubmitEvaluation reports whether an evaluation may be saved while the
// product is in s. EVALUATED is included so a failed certification can be
// retried.
func (s ProductStatus) CanSubmitEvaluation() bool {
	switch s {
	case ProductStatusPending, ProductStatusUnderReview, ProductStatusEvaluated:
		return true
	}
	return false
}

// CanTransition reports whether an explicit admin status change from s to
// next is allowed. EVALUATED and CERTIFIED are only reached through the
// evaluation workflow and are never valid targets here.
func (s ProductStatus) CanTransition(next ProductStatus) bool {
	switch next {
	case ProductStatusUnderReview:
		return s == ProductStatusPending
	case ProductStatusRejected:
		return !s.Terminal() && s.Valid()
	case ProductStatusPending:
		return s == ProductStatusRejected
	default:
		return false
	}
}
