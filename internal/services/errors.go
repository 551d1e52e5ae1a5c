package services

import (
	apperrors "hazacheck/pkg/errors"
)

// Validation and lookup failures surfaced to customers and staff.
// Handlers compare them with errors.Is and map their codes to HTTP statuses.
var (
	ErrMissingField      = apperrors.New(apperrors.ErrCodeValidation, "필수 항목을 모두 입력해주세요.")
	ErrInvalidPin        = apperrors.New(apperrors.ErrCodeValidation, "비밀번호는 숫자 4자리로 입력해주세요.")
	ErrConsentRequired   = apperrors.New(apperrors.ErrCodeValidation, "개인정보 수집 및 이용에 동의해주세요.")
	ErrInvalidPhone      = apperrors.New(apperrors.ErrCodeValidation, "올바른 전화번호 형식이 아닙니다.")
	ErrInvalidEmail      = apperrors.New(apperrors.ErrCodeValidation, "올바른 이메일 형식이 아닙니다.")
	ErrMissingIDOrStatus = apperrors.New(apperrors.ErrCodeValidation, "문의 ID와 상태가 필요합니다.")
	ErrInvalidStatus     = apperrors.New(apperrors.ErrCodeValidation, "유효하지 않은 상태입니다.")
	ErrMissingID         = apperrors.New(apperrors.ErrCodeValidation, "문의 ID가 필요합니다.")
	ErrInvalidBody       = apperrors.New(apperrors.ErrCodeBadRequest, "요청 형식이 올바르지 않습니다.")

	ErrPinMismatch  = apperrors.New(apperrors.ErrCodeUnauthorized, "전화번호 또는 비밀번호가 일치하지 않습니다.")
	ErrUnauthorized = apperrors.New(apperrors.ErrCodeUnauthorized, "인증이 필요합니다.")

	ErrInquiryNotFound  = apperrors.New(apperrors.ErrCodeNotFound, "문의를 찾을 수 없습니다.")
	ErrSessionsDisabled = apperrors.New(apperrors.ErrCodeNotFound, "세션 발급이 비활성화되어 있습니다.")
)

// Generic messages used when wrapping persistence failures
const (
	msgSubmitFailed = "문의 접수 중 오류가 발생했습니다."
	msgLookupFailed = "문의 조회 중 오류가 발생했습니다."
	msgAdminFailed  = "요청 처리 중 오류가 발생했습니다."
)

func internalError(message string, err error) error {
	return apperrors.Wrap(apperrors.ErrCodeInternalError, message, err)
}
