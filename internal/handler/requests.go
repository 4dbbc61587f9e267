package handler

import (
	validation "github.com/go-ozzo/ozzo-validation"
)

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (r *credentialsRequest) Validate() error {
	return validation.ValidateStruct(
		r,
		validation.Field(&r.Login, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

type registerRequest struct {
	Login             string `json:"login"`
	Password          string `json:"password"`
	DisplayName       string `json:"display_name"`
	PreferredBranchID *int64 `json:"preferred_branch_id"`
}

func (r *registerRequest) Validate() error {
	return validation.ValidateStruct(
		r,
		validation.Field(&r.Login, validation.Required, validation.Length(3, 120)),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 72)),
		validation.Field(&r.DisplayName, validation.Length(0, 120)),
		validation.Field(&r.PreferredBranchID, validation.Min(1)),
	)
}

type campaignTokenRequest struct {
	OfferID  int64  `json:"offer_id"`
	BranchID *int64 `json:"branch_id"`
}

func (r *campaignTokenRequest) Validate() error {
	return validation.ValidateStruct(
		r,
		validation.Field(&r.OfferID, validation.Required, validation.Min(1)),
		validation.Field(&r.BranchID, validation.Min(1)),
	)
}

type redemptionRequest struct {
	ProductID int64 `json:"product_id"`
}

func (r *redemptionRequest) Validate() error {
	return validation.ValidateStruct(
		r,
		validation.Field(&r.ProductID, validation.Required, validation.Min(1)),
	)
}

type redeemTokenRequest struct {
	Code string `json:"code"`
}

func (r *redeemTokenRequest) Validate() error {
	return validation.ValidateStruct(
		r,
		validation.Field(&r.Code, validation.Required),
	)
}

type confirmRedemptionRequest struct {
	ConfirmationCode string `json:"confirmation_code"`
}

func (r *confirmRedemptionRequest) Validate() error {
	return validation.ValidateStruct(
		r,
		validation.Field(&r.ConfirmationCode, validation.Required),
	)
}
