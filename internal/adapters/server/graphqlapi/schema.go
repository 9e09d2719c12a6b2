package graphqlapi

// Schema is the board service GraphQL schema served by the development server.
const Schema = `
schema {
  query: Query
  mutation: Mutation
}

type Query {
  boards: [Board!]!
}

type Mutation {
  createBoard(name: String!, description: String!, columns: [ColumnInput!]!): Board!
  addTaskToColumn(boardId: ID!, columnName: String!, task: TaskInput!): Board!
  login(email: String!, password: String!): AuthPayload!
  register(email: String!, password: String!): AuthPayload!
}

type Board {
  id: ID!
  name: String!
  description: String!
  columns: [Column!]!
}

type Column {
  name: String!
  tasks: [Task!]!
}

type Task {
  title: String!
  description: String!
}

type AuthPayload {
  token: String!
}

input ColumnInput {
  name: String!
  tasks: [TaskInput!]
}

input TaskInput {
  title: String!
  description: String!
}
`
