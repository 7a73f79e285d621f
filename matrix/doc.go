// Package matrix 提供评分矩阵构建与两两余弦相似度计算。
//
// 设计要点：
//   - 稀疏优先：行向量以 (下标, 值) 升序存储，0 即缺失
//   - 相似度矩阵以 gonum SymDense 存储，对称性由存储结构保证
//   - 同一个 RatingMatrix 实例内行/列 key 顺序稳定（按字典序）
//
// 评分矩阵与相似度矩阵默认每次调用重新计算；需要缓存时使用 Cache。
package matrix
