// Package util 提供通用工具相关的子包。
//
// 子包列表：
//   - xid: 请求 ID 生成器，基于 Sonyflake 的单调可排序 ID，失败时回退 UUID
//
// 设计原则：
//   - 零配置可用，构造失败不影响调用方
//   - 跨平台兼容
package util
