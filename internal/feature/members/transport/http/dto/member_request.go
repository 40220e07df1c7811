// Package dto はmembersフィーチャーのHTTPトランスポート層のデータ転送オブジェクトを定義します。
package dto

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"member_backend/internal/api"
	"member_backend/internal/feature/members/domain/entity"
)

var errInvalidDate = errors.New("dateJoined must be an RFC3339 timestamp or YYYY-MM-DD date")

// dateLayouts は dateJoined として受け付ける書式です。
var dateLayouts = []string{time.RFC3339Nano, "2006-01-02"}

// parseDate はRFC3339または日付のみの文字列を解釈します。
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errInvalidDate
}

// CreateMemberReq はメンバー作成のリクエストボディです。
type CreateMemberReq struct {
	Name       string  `json:"name" binding:"required,max=255"`
	Email      string  `json:"email" binding:"required,email"`
	Phone      string  `json:"phone" binding:"required,max=64"`
	Address    string  `json:"address" binding:"required,max=512"`
	ChurchName string  `json:"churchName" binding:"required,max=255"`
	Department string  `json:"department" binding:"required,max=255"`
	Position   string  `json:"position" binding:"max=255"`
	DateJoined *string `json:"dateJoined"`
}

// ToInput はリクエストをユースケースの入力に変換します。
func (r CreateMemberReq) ToInput() (entity.MemberInput, []api.FieldError) {
	in := entity.MemberInput{
		Name:       r.Name,
		Email:      r.Email,
		Phone:      r.Phone,
		Address:    r.Address,
		ChurchName: r.ChurchName,
		Department: r.Department,
		Position:   r.Position,
	}
	var errs []api.FieldError
	for field, v := range map[string]string{
		"name": r.Name, "phone": r.Phone, "address": r.Address,
		"churchName": r.ChurchName, "department": r.Department,
	} {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, api.FieldError{Field: field, Message: field + " is required"})
		}
	}
	if r.DateJoined != nil && strings.TrimSpace(*r.DateJoined) != "" {
		t, err := parseDate(*r.DateJoined)
		if err != nil {
			errs = append(errs, api.FieldError{Field: "dateJoined", Message: err.Error()})
		} else {
			in.DateJoined = &t
		}
	}
	return in, sortFieldErrors(errs)
}

// UpdateMemberReq はメンバー更新のリクエストボディです。省略したフィールドは変更されません。
type UpdateMemberReq struct {
	Name       *string `json:"name" binding:"omitempty,max=255"`
	Email      *string `json:"email" binding:"omitempty,email"`
	Phone      *string `json:"phone" binding:"omitempty,max=64"`
	Address    *string `json:"address" binding:"omitempty,max=512"`
	ChurchName *string `json:"churchName" binding:"omitempty,max=255"`
	Department *string `json:"department" binding:"omitempty,max=255"`
	Position   *string `json:"position" binding:"omitempty,max=255"`
	DateJoined *string `json:"dateJoined"`
}

// ToPatch はリクエストをユースケースのパッチに変換します。
// 必須フィールドを空文字で上書きしようとした場合はフィールドエラーを返します。
func (r UpdateMemberReq) ToPatch() (entity.MemberPatch, []api.FieldError) {
	p := entity.MemberPatch{
		Name:       r.Name,
		Email:      r.Email,
		Phone:      r.Phone,
		Address:    r.Address,
		ChurchName: r.ChurchName,
		Department: r.Department,
		Position:   r.Position,
	}
	var errs []api.FieldError
	for field, v := range map[string]*string{
		"name": r.Name, "email": r.Email, "phone": r.Phone, "address": r.Address,
		"churchName": r.ChurchName, "department": r.Department, "position": r.Position,
	} {
		if v != nil && strings.TrimSpace(*v) == "" {
			errs = append(errs, api.FieldError{Field: field, Message: field + " must not be empty"})
		}
	}
	if r.DateJoined != nil {
		t, err := parseDate(*r.DateJoined)
		if err != nil {
			errs = append(errs, api.FieldError{Field: "dateJoined", Message: err.Error()})
		} else {
			p.DateJoined = &t
		}
	}
	return p, sortFieldErrors(errs)
}

// ListMembersQuery は一覧取得のクエリパラメータです。
// 数値でない page と limit は未指定として扱い、範囲外の値はユースケース側で丸められます。
type ListMembersQuery struct {
	Page       string `form:"page"`
	Limit      string `form:"limit"`
	ChurchName string `form:"churchName" binding:"max=255"`
	Search     string `form:"search" binding:"max=255"`
}

// PageNumber は page を整数に変換します。解釈できない場合は0を返します。
func (q ListMembersQuery) PageNumber() int {
	n, _ := strconv.Atoi(strings.TrimSpace(q.Page))
	return n
}

// PageSize は limit を整数に変換します。解釈できない場合は0を返します。
func (q ListMembersQuery) PageSize() int {
	n, _ := strconv.Atoi(strings.TrimSpace(q.Limit))
	return n
}

func sortFieldErrors(errs []api.FieldError) []api.FieldError {
	sort.Slice(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
	return errs
}
