// Package dataset 提供打分引擎读取的数据集快照。
//
// Snapshot 在构建后只读：评分记录、目录信息与各类索引在构造时一次性生成，
// 可被任意数量的请求并发读取。替换快照通过 Holder 原子切换指针完成，
// 正在执行的请求继续使用它们已经拿到的旧快照，不会读到新旧混合的数据。
//
// 快照的加载（CSV 文件、core.Store）属于外围 I/O，见 CSVLoader 与 StoreLoader。
package dataset
