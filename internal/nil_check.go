package internal

import "reflect"

// IsNil 判斷介面值是否為 nil，包含包著 nil 指標的 typed nil。
// 選用依賴（例如未設定 DB 時的 *postgres.ResultRepo）以此判斷是否停用。
func IsNil(i interface{}) bool {
	if i == nil {
		return true
	}
	switch v := reflect.ValueOf(i); v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return false
	}
}
